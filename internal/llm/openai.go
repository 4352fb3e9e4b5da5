package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// DefaultOpenAIModel is used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

const openaiProvider = "OpenAI"

// gpt-4o-mini pricing (per million tokens)
const (
	openaiInputPricePerMillion  = 0.15
	openaiOutputPricePerMillion = 0.60
)

// OpenAIConfig configures an OpenAIAnalyzer. BaseURL can point at any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Prompt     *PromptConfig
}

// OpenAIAnalyzer uses the chat completions API with a strict JSON schema.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	prompt *PromptConfig
	schema jsonschema.Definition
}

// NewOpenAIAnalyzer creates a new OpenAI-based analyzer.
func NewOpenAIAnalyzer(cfg OpenAIConfig) (*OpenAIAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	prompt, err := resolvePrompt(cfg.Prompt)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIAnalyzer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		prompt: prompt,
		schema: prompt.OpenAISchema(),
	}, nil
}

// Analyze implements the Analyzer interface using OpenAI.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, imageBase64, mimeType string) (*ecg.AnalysisResult, error) {
	if _, err := base64.StdEncoding.DecodeString(imageBase64); err != nil {
		return nil, &AnalysisError{Kind: KindEncoding, Provider: openaiProvider, Err: err}
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: o.prompt.Instruction,
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "ecg_analysis",
				Schema: &o.schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Str("model", o.model).Msg("ecg analysis call failed")
		return nil, &AnalysisError{Kind: KindService, Provider: openaiProvider, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &AnalysisError{Kind: KindResponse, Provider: openaiProvider, Err: errors.New("no response from OpenAI")}
	}

	analysis, err := parseAnalysisResult(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &AnalysisError{Kind: KindResponse, Provider: openaiProvider, Err: err}
	}

	usage := Usage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
		TotalTokens:  int64(resp.Usage.TotalTokens),
	}
	usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, openaiInputPricePerMillion, openaiOutputPricePerMillion)

	log.Info().
		Str("model", o.model).
		Str("prompt", o.prompt.Version).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Str("level", string(analysis.ArrhythmiaLevel)).
		Int("metrics", len(analysis.Metrics)).
		Msg("ecg analysis llm call")

	return analysis, nil
}
