package ecg

// Severity is the visual bucket a level is rendered with.
type Severity string

const (
	SeverityBenign   Severity = "benign"
	SeverityCaution  Severity = "caution"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// Severity maps the level onto one of the four buckets. Unrecognized values
// fall into SeverityUnknown, so the mapping is total.
func (l ArrhythmiaLevel) Severity() Severity {
	switch l {
	case LevelNone, LevelLow:
		return SeverityBenign
	case LevelModerate:
		return SeverityCaution
	case LevelHigh, LevelSevere:
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}
