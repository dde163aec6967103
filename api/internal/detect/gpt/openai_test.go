package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	e := New("sk-test", "gpt-4o-audio-preview").WithHTTPClient(srv.Client())
	e.BaseURL = srv.URL
	return e
}

func reply(w http.ResponseWriter, finish, content, refusal string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{
			"finish_reason": finish,
			"message":       map[string]any{"content": content, "refusal": refusal},
		}},
	})
}

func TestGenerate_Success(t *testing.T) {
	var got map[string]any
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, "stop", `{"classification":"HUMAN","confidenceScore":0.9}`, "")
	})

	out, err := e.Generate(context.Background(), types.DetectRequest{AudioB64: "AAAA", MIMEType: "audio/wav", Language: "French"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"classification":"HUMAN","confidenceScore":0.9}`, out)

	assert.Equal(t, "gpt-4o-audio-preview", got["model"])
	msgs := got["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	assert.Contains(t, content[0].(map[string]any)["text"], "French")
	audio := content[1].(map[string]any)["input_audio"].(map[string]any)
	assert.Equal(t, "wav", audio["format"])
	assert.Equal(t, "AAAA", audio["data"])

	rf := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	assert.Equal(t, true, rf["json_schema"].(map[string]any)["strict"])
}

func TestGenerate_StatusKinds(t *testing.T) {
	cases := map[int]detect.Kind{
		http.StatusTooManyRequests:     detect.KindTransient,
		http.StatusServiceUnavailable:  detect.KindTransient,
		http.StatusInternalServerError: detect.KindTransient,
		http.StatusUnauthorized:        detect.KindFatal,
		http.StatusBadRequest:          detect.KindFatal,
	}
	for code, want := range cases {
		e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"nope"}}`, code)
		})
		_, err := e.Generate(context.Background(), types.DetectRequest{AudioB64: "AAAA", MIMEType: "audio/mp3"})
		require.Error(t, err)
		assert.Equal(t, want, detect.KindOf(err), "status %d", code)
	}
}

func TestGenerate_Safety(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, "content_filter", "", "")
	})
	_, err := e.Generate(context.Background(), types.DetectRequest{AudioB64: "AAAA"})
	assert.Equal(t, detect.KindSafety, detect.KindOf(err))

	e = newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, "stop", "", "I can't help with that.")
	})
	_, err = e.Generate(context.Background(), types.DetectRequest{AudioB64: "AAAA"})
	assert.Equal(t, detect.KindSafety, detect.KindOf(err))
}

func TestGenerate_EmptyAndUnsupported(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, "stop", "  ", "")
	})
	_, err := e.Generate(context.Background(), types.DetectRequest{AudioB64: "AAAA"})
	assert.Equal(t, detect.KindMalformed, detect.KindOf(err))

	_, err = e.Generate(context.Background(), types.DetectRequest{AudioB64: "AAAA", MIMEType: "audio/ogg"})
	assert.Equal(t, detect.KindFatal, detect.KindOf(err))

	_, err = New("", "m").Generate(context.Background(), types.DetectRequest{})
	assert.Equal(t, detect.KindFatal, detect.KindOf(err))
}

func TestClassify_NonHTTP(t *testing.T) {
	assert.Equal(t, detect.KindTransient, classify(context.DeadlineExceeded))
	assert.Equal(t, detect.KindFatal, classify(errors.New("dial tcp: connection refused")))
}
