package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatResult(t *testing.T) {
	img := capture.New("ecg.png", "image/png", []byte("fake"))
	result := &ecg.AnalysisResult{
		Metrics: []ecg.ECGMetric{
			{Name: "Frecuencia Cardíaca", Value: "75 lpm", Interpretation: "Normal"},
			{Name: "Intervalo PR", Value: "160 ms"},
		},
		ArrhythmiaLevel: ecg.LevelModerate,
		Summary:         "Posible bloqueo.",
	}

	out := formatResult(img, result)
	assert.Contains(t, out, "ecg.png (image/png, 4 bytes)")
	assert.Contains(t, out, "Moderada")
	assert.Contains(t, out, "Posible bloqueo.")
	assert.Contains(t, out, "  - Frecuencia Cardíaca: 75 lpm (Normal)")
	assert.Contains(t, out, "  - Intervalo PR: 160 ms")
	assert.NotContains(t, out, "160 ms (")
}

func TestFormatResult_NoMetrics(t *testing.T) {
	img := capture.New("ecg.png", "image/png", []byte("fake"))
	out := formatResult(img, &ecg.AnalysisResult{ArrhythmiaLevel: ecg.LevelIndeterminate, Summary: "Ilegible."})
	assert.Contains(t, out, "(none)")
}

func TestLoadImage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecg.bin")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0600))

	img, err := loadImage(context.Background(), path, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = loadImage(context.Background(), path, 4)
	assert.ErrorIs(t, err, capture.ErrTooLarge)

	_, err = loadImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"), 1<<20)
	assert.Error(t, err)
}
