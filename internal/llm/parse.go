package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/rs/zerolog/log"
)

// parseAnalysisResult decodes the model's JSON text into an AnalysisResult.
// Unknown fields, trailing data and missing top-level fields are rejected.
// An arrhythmia level outside the known set is kept and rendered as unknown.
func parseAnalysisResult(text string) (*ecg.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty response")
	}

	var raw struct {
		Metrics         *[]ecg.ECGMetric     `json:"metrics"`
		ArrhythmiaLevel *ecg.ArrhythmiaLevel `json:"arrhythmiaLevel"`
		Summary         *string              `json:"summary"`
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, text)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after response JSON (response: %s)", text)
	}

	switch {
	case raw.Metrics == nil:
		return nil, fmt.Errorf("response is missing %q", "metrics")
	case raw.ArrhythmiaLevel == nil:
		return nil, fmt.Errorf("response is missing %q", "arrhythmiaLevel")
	case raw.Summary == nil:
		return nil, fmt.Errorf("response is missing %q", "summary")
	}

	result := &ecg.AnalysisResult{
		Metrics:         *raw.Metrics,
		ArrhythmiaLevel: *raw.ArrhythmiaLevel,
		Summary:         *raw.Summary,
	}
	if !result.ArrhythmiaLevel.IsValid() {
		log.Warn().Str("level", string(result.ArrhythmiaLevel)).Msg("model returned unknown arrhythmia level")
	}
	return result, nil
}
