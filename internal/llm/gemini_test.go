package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testImageBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

// fakeGemini serves generateContent requests and records what it received.
type fakeGemini struct {
	calls    atomic.Int32
	lastBody map[string]any
	lastPath string
	status   int
	reply    string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastPath = r.URL.Path
	body, _ := io.ReadAll(r.Body)
	f.lastBody = nil
	_ = json.Unmarshal(body, &f.lastBody)

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    f.status,
				"message": "quota exceeded",
				"status":  "RESOURCE_EXHAUSTED",
			},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": f.reply}},
				},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     1200,
			"candidatesTokenCount": 300,
			"totalTokenCount":      1500,
		},
	})
}

func newTestGemini(t *testing.T, fake *fakeGemini) *GeminiAnalyzer {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	g, err := NewGeminiAnalyzer(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)
	return g
}

func TestNewGeminiAnalyzer_RequiresKey(t *testing.T) {
	_, err := NewGeminiAnalyzer(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiAnalyze_Success(t *testing.T) {
	fake := &fakeGemini{reply: sampleAnalysisJSON}
	g := newTestGemini(t, fake)

	res, err := g.Analyze(context.Background(), testImageBase64, "image/png")
	require.NoError(t, err)
	assert.Equal(t, ecg.LevelNone, res.ArrhythmiaLevel)
	assert.Len(t, res.Metrics, 2)
	assert.Equal(t, int32(1), fake.calls.Load())

	assert.True(t, strings.HasSuffix(fake.lastPath, "/models/"+DefaultGeminiModel+":generateContent"), fake.lastPath)

	contents := fake.lastBody["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)

	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, testImageBase64, inline["data"])
	assert.Contains(t, parts[1].(map[string]any)["text"], "cardiología")

	genConfig := fake.lastBody["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", genConfig["responseMimeType"])
	assert.NotNil(t, genConfig["responseSchema"])
}

func TestGeminiAnalyze_EachCallIssuesRequest(t *testing.T) {
	fake := &fakeGemini{reply: sampleAnalysisJSON}
	g := newTestGemini(t, fake)

	for i := 0; i < 2; i++ {
		_, err := g.Analyze(context.Background(), testImageBase64, "image/png")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestGeminiAnalyze_ServiceError(t *testing.T) {
	fake := &fakeGemini{status: http.StatusTooManyRequests}
	g := newTestGemini(t, fake)

	_, err := g.Analyze(context.Background(), testImageBase64, "image/png")
	require.Error(t, err)

	var analysisErr *AnalysisError
	require.True(t, errors.As(err, &analysisErr))
	assert.Equal(t, KindService, analysisErr.Kind)
	assert.True(t, strings.HasPrefix(err.Error(), "Error al analizar la imagen. Error de la API de Gemini: "))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiAnalyze_MalformedResponse(t *testing.T) {
	fake := &fakeGemini{reply: "El ECG parece normal."}
	g := newTestGemini(t, fake)

	_, err := g.Analyze(context.Background(), testImageBase64, "image/png")
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindResponse, analysisErr.Kind)
	assert.Contains(t, err.Error(), "Error de la API de Gemini")
}

func TestGeminiAnalyze_InvalidBase64(t *testing.T) {
	fake := &fakeGemini{reply: sampleAnalysisJSON}
	g := newTestGemini(t, fake)

	_, err := g.Analyze(context.Background(), "%%%not-base64", "image/png")
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindEncoding, analysisErr.Kind)
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestGeminiAnalyze_UnknownLevel(t *testing.T) {
	fake := &fakeGemini{reply: `{"metrics":[],"arrhythmiaLevel":"Extrema","summary":"x"}`}
	g := newTestGemini(t, fake)

	res, err := g.Analyze(context.Background(), testImageBase64, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, ecg.SeverityUnknown, res.ArrhythmiaLevel.Severity())
}
