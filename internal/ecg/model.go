package ecg

// ECGMetric is a single named measurement extracted from the ECG image.
type ECGMetric struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	Interpretation string `json:"interpretation"`
}

// ArrhythmiaLevel is the coarse severity label returned by the model.
type ArrhythmiaLevel string

const (
	LevelNone          ArrhythmiaLevel = "Ninguna"
	LevelLow           ArrhythmiaLevel = "Baja"
	LevelModerate      ArrhythmiaLevel = "Moderada"
	LevelHigh          ArrhythmiaLevel = "Alta"
	LevelSevere        ArrhythmiaLevel = "Severa"
	LevelIndeterminate ArrhythmiaLevel = "Indeterminada"
)

// Levels returns the six accepted levels in ascending severity, with
// indeterminate last.
func Levels() []ArrhythmiaLevel {
	return []ArrhythmiaLevel{
		LevelNone,
		LevelLow,
		LevelModerate,
		LevelHigh,
		LevelSevere,
		LevelIndeterminate,
	}
}

// LevelStrings returns Levels as plain strings, in the same order.
func LevelStrings() []string {
	levels := Levels()
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

// IsValid reports whether l is one of the six accepted levels.
func (l ArrhythmiaLevel) IsValid() bool {
	for _, known := range Levels() {
		if l == known {
			return true
		}
	}
	return false
}

// AnalysisResult is the structured answer for one analyzed image.
// A result is built once from a response and never modified afterwards;
// callers replace it wholesale.
type AnalysisResult struct {
	Metrics         []ECGMetric     `json:"metrics"`
	ArrhythmiaLevel ArrhythmiaLevel `json:"arrhythmiaLevel"`
	Summary         string          `json:"summary"`
}
