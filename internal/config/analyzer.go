package config

import (
	"context"
	"fmt"

	"github.com/raine/ecg-analyzer/internal/llm"
	"github.com/rs/zerolog/log"
)

// Prompt loads the prompt from PromptFile when set, otherwise the embedded
// PromptVersion.
func (c *Config) Prompt() (*llm.PromptConfig, error) {
	if c.PromptFile != "" {
		prompt, err := llm.LoadPromptFile(c.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt file: %w", err)
		}
		return prompt, nil
	}
	return llm.LoadPrompt(c.PromptVersion)
}

// NewAnalyzer builds the analyzer for the configured provider.
func (c *Config) NewAnalyzer(ctx context.Context) (llm.Analyzer, error) {
	prompt, err := c.Prompt()
	if err != nil {
		return nil, err
	}

	switch c.Provider {
	case ProviderOpenAI:
		analyzer, err := llm.NewOpenAIAnalyzer(llm.OpenAIConfig{
			APIKey:  c.OpenAIAPIKey,
			BaseURL: c.OpenAIBaseURL,
			Model:   c.OpenAIModel,
			Prompt:  prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai analyzer: %w", err)
		}
		log.Info().Str("provider", c.Provider).Str("prompt", prompt.Version).Msg("vision analyzer initialized")
		return analyzer, nil
	default:
		analyzer, err := llm.NewGeminiAnalyzer(ctx, llm.GeminiConfig{
			APIKey: c.GeminiAPIKey,
			Model:  c.GeminiModel,
			Prompt: prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini analyzer: %w", err)
		}
		log.Info().Str("provider", c.Provider).Str("prompt", prompt.Version).Msg("vision analyzer initialized")
		return analyzer, nil
	}
}
