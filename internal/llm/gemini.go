package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

const geminiProvider = "Gemini"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

// GeminiConfig configures a GeminiAnalyzer.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL    string
	HTTPClient *http.Client
	// Prompt defaults to the embedded DefaultPromptVersion.
	Prompt *PromptConfig
}

// GeminiAnalyzer uses Google's Gemini API with structured JSON output.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	prompt *PromptConfig
	schema *genai.Schema
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
func NewGeminiAnalyzer(ctx context.Context, cfg GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	prompt, err := resolvePrompt(cfg.Prompt)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiAnalyzer{
		client: client,
		model:  model,
		prompt: prompt,
		schema: prompt.GeminiSchema(),
	}, nil
}

// Analyze implements the Analyzer interface using Gemini.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, imageBase64, mimeType string) (*ecg.AnalysisResult, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, &AnalysisError{Kind: KindEncoding, Provider: geminiProvider, Err: err}
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
		genai.NewPartFromText(g.prompt.Instruction),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   g.schema,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		log.Error().Err(err).Str("model", g.model).Msg("ecg analysis call failed")
		return nil, &AnalysisError{Kind: KindService, Provider: geminiProvider, Err: err}
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, &AnalysisError{Kind: KindResponse, Provider: geminiProvider, Err: errors.New("no response from Gemini")}
	}

	analysis, err := parseAnalysisResult(result.Text())
	if err != nil {
		return nil, &AnalysisError{Kind: KindResponse, Provider: geminiProvider, Err: err}
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", g.model).
		Str("prompt", g.prompt.Version).
		Int("imageBytes", len(data)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Str("level", string(analysis.ArrhythmiaLevel)).
		Int("metrics", len(analysis.Metrics)).
		Msg("ecg analysis llm call")

	return analysis, nil
}

func resolvePrompt(p *PromptConfig) (*PromptConfig, error) {
	if p != nil {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	}
	return LoadPrompt(DefaultPromptVersion)
}
