package web

import (
	"errors"
	"fmt"
	"testing"

	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/llm"
	"github.com/raine/ecg-analyzer/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"missing input", session.ErrMissingInput, MsgSelectImageFirst},
		{"internal", session.ErrInternal, MsgUnexpectedErr},
		{
			"service error",
			&llm.AnalysisError{Kind: llm.KindService, Provider: "Gemini", Err: errors.New("quota exceeded")},
			"Error al analizar la imagen. Error de la API de Gemini: quota exceeded",
		},
		{
			"wrapped analysis error",
			fmt.Errorf("analyze: %w", &llm.AnalysisError{Kind: llm.KindResponse, Provider: "OpenAI", Err: errors.New("bad json")}),
			"Error al analizar la imagen. Error de la API de OpenAI: bad json",
		},
		{
			"analysis error without message",
			&llm.AnalysisError{Kind: llm.KindService, Provider: "Gemini"},
			"Ocurrió un error desconocido durante el análisis de la imagen.",
		},
		{"encoding error", &capture.EncodingError{Err: errors.New("boom")}, MsgUnexpectedErr},
		{"empty message", errors.New(""), MsgUnexpectedErr},
		{"plain error", errors.New("something broke"), "something broke"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.err))
		})
	}
}

func TestFormatText(t *testing.T) {
	assert.Equal(t, "La imagen supera el tamaño máximo de 10 MB.", formatText(MsgImageTooLarge, 10))
	assert.Equal(t, "Nivel de Arritmia: Alta", formatText(MsgArrhythmiaLevel, "Alta"))
}
