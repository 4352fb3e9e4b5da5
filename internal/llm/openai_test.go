package llm

import (
	"context"
	"encoding/json"
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

type fakeOpenAI struct {
	calls    atomic.Int32
	lastBody map[string]any
	status   int
	reply    string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.lastBody = nil
	_ = json.Unmarshal(body, &f.lastBody)

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "quota exceeded",
				"type":    "insufficient_quota",
				"code":    "insufficient_quota",
			},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultOpenAIModel,
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": f.reply},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     900,
			"completion_tokens": 200,
			"total_tokens":      1100,
		},
	})
}

func newTestOpenAI(t *testing.T, fake *fakeOpenAI) *OpenAIAnalyzer {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	o, err := NewOpenAIAnalyzer(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    ts.URL + "/v1",
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)
	return o
}

func TestOpenAIAnalyze_Success(t *testing.T) {
	fake := &fakeOpenAI{reply: sampleAnalysisJSON}
	o := newTestOpenAI(t, fake)

	res, err := o.Analyze(context.Background(), testImageBase64, "image/png")
	require.NoError(t, err)
	assert.Equal(t, ecg.LevelNone, res.ArrhythmiaLevel)
	assert.Equal(t, int32(1), fake.calls.Load())

	assert.Equal(t, DefaultOpenAIModel, fake.lastBody["model"])

	format := fake.lastBody["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "ecg_analysis", schema["name"])
	assert.Equal(t, true, schema["strict"])

	messages := fake.lastBody["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	image := content[0].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	url := image["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,"+testImageBase64, url)
}

func TestOpenAIAnalyze_ServiceError(t *testing.T) {
	fake := &fakeOpenAI{status: http.StatusTooManyRequests}
	o := newTestOpenAI(t, fake)

	_, err := o.Analyze(context.Background(), testImageBase64, "image/png")
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindService, analysisErr.Kind)
	assert.True(t, strings.HasPrefix(err.Error(), "Error al analizar la imagen. Error de la API de OpenAI: "))
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestOpenAIAnalyze_MalformedResponse(t *testing.T) {
	fake := &fakeOpenAI{reply: `{"metrics":[],"arrhythmiaLevel":"Baja"}`}
	o := newTestOpenAI(t, fake)

	_, err := o.Analyze(context.Background(), testImageBase64, "image/png")
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindResponse, analysisErr.Kind)
}

func TestOpenAIAnalyze_InvalidBase64(t *testing.T) {
	fake := &fakeOpenAI{reply: sampleAnalysisJSON}
	o := newTestOpenAI(t, fake)

	_, err := o.Analyze(context.Background(), "%%%", "image/png")
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindEncoding, analysisErr.Kind)
	assert.Equal(t, int32(0), fake.calls.Load())
}
