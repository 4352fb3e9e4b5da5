package session

import (
	"errors"
	"time"

	"github.com/raine/ecg-analyzer/internal/ecg"
)

var (
	// ErrMissingInput is reported when analysis is requested with no image selected.
	ErrMissingInput = errors.New("no image selected")
	// ErrAnalysisInProgress is returned when an analysis is already running for the session.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	// ErrInternal replaces the outcome of a job that crashed the worker.
	ErrInternal = errors.New("internal error")
)

// State is the analysis state of a session. Exactly one variant holds at a
// time, so "loading with a stale result" and similar mixes can't be built.
type State interface {
	isState()
}

// Absent means nothing has been analyzed since the last selection or reset.
type Absent struct{}

// Loading means an analysis job has been queued or is running.
type Loading struct {
	Since time.Time
}

// Present holds the result of the last successful analysis.
type Present struct {
	Result *ecg.AnalysisResult
}

// Failed holds the error of the last analysis attempt.
type Failed struct {
	Err error
}

func (Absent) isState()  {}
func (Loading) isState() {}
func (Present) isState() {}
func (Failed) isState()  {}

// Phase is the coarse UI phase derived from the selected image and State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFileSelected
	PhaseAnalyzing
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:         "idle",
	PhaseFileSelected: "file_selected",
	PhaseAnalyzing:    "analyzing",
	PhaseSucceeded:    "succeeded",
	PhaseFailed:       "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets Phase appear by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
