package llm

import (
	"context"

	"github.com/raine/ecg-analyzer/internal/ecg"
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Analyzer turns an ECG image into a structured analysis.
type Analyzer interface {
	// Analyze takes base64 image data (no data URI prefix) and its MIME type.
	// Every call issues exactly one request to the provider. Failures are
	// returned as *AnalysisError.
	Analyze(ctx context.Context, imageBase64, mimeType string) (*ecg.AnalysisResult, error)
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
