package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"golang.org/x/term"
)

// geminiModelsURL is the lightweight endpoint used to check an API key.
var geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// envFileOrder is the order keys are written to config.env.
var envFileOrder = []string{"ECG_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "ECG_SESSION_SECRET"}

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunSetupWizard runs an interactive wizard to collect required configuration.
// Returns true if setup was successful and the server should continue starting.
func RunSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("🫀 ECG Analyzer - First-time Setup"))
	fmt.Println()

	selected := provider()
	var apiKey string

	var keyInput *huh.Input
	if selected == ProviderOpenAI {
		keyInput = huh.NewInput().
			Title("OpenAI API Key").
			Description("Any OpenAI-compatible key; set OPENAI_BASE_URL for other endpoints").
			Value(&apiKey).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("API key is required")
				}
				return nil
			})
	} else {
		keyInput = huh.NewInput().
			Title("Gemini API Key").
			Description("Get yours at https://aistudio.google.com/apikey").
			Value(&apiKey).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("API key is required")
				}
				return validateGeminiKey(s)
			})
	}

	form := huh.NewForm(huh.NewGroup(keyInput)).WithTheme(huh.ThemeBase16())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"ECG_PROVIDER":       selected,
		"ECG_SESSION_SECRET": generateSecret(),
	}
	if selected == ProviderOpenAI {
		values["OPENAI_API_KEY"] = apiKey
	} else {
		values["GEMINI_API_KEY"] = apiKey
	}

	configPath, err := FilePath()
	if err == nil {
		err = writeEnvFile(configPath, values)
	}
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	// Set values in current process
	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()
	fmt.Println("Starting server...")
	fmt.Println()

	return true
}

func generateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based if crypto/rand fails (unlikely)
		return fmt.Sprintf("ecg-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateGeminiKey validates a Gemini API key by listing models.
func validateGeminiKey(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	res, err := resty.New().R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get(geminiModelsURL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("connection timed out - check your internet")
		}
		return errors.New("connection failed - check your internet")
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", res.StatusCode())
	default:
		return fmt.Errorf("unexpected response (HTTP %d)", res.StatusCode())
	}
}

// writeEnvFile writes values to path with restrictive permissions (0600)
// since the file contains secrets.
func writeEnvFile(path string, values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Write in a consistent order, quoting values to handle special characters
	for _, key := range envFileOrder {
		if val, ok := values[key]; ok {
			if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}

	return nil
}
