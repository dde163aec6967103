package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want detect.Kind
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, detect.KindTransient},
		{"unavailable", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), detect.KindTransient},
		{"bad key", &googleapi.Error{Code: http.StatusUnauthorized}, detect.KindFatal},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, detect.KindFatal},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), detect.KindTransient},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad"), detect.KindFatal},
		{"blocked", &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}}, detect.KindSafety},
		{"deadline", context.DeadlineExceeded, detect.KindTransient},
		{"message only", errors.New("googleapi: Error 503"), detect.KindFatal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, classify(c.err))
		})
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	_, err := New("", "gemini-2.5-flash").Generate(context.Background(), types.DetectRequest{})
	require.Error(t, err)
	assert.Equal(t, detect.KindFatal, detect.KindOf(err))
}

func TestResponseSchema(t *testing.T) {
	s := ResponseSchema()
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"classification", "confidenceScore", "explanation"}, s.Required)
	for _, k := range []string{"language", "artifactsFound", "status"} {
		assert.Contains(t, s.Properties, k)
	}
	assert.Equal(t, genai.TypeArray, s.Properties["artifactsFound"].Type)
}

func TestInstruction(t *testing.T) {
	e := New("k", "m")
	assert.Contains(t, e.instruction("Tamil"), "Tamil voice recording")
	assert.Contains(t, e.instruction(""), "English voice recording")

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gemini"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gemini", "detect.txt"), []byte("Analyze if this {{language}} voice is AI or Human."), 0o644))
	e.PromptDir = dir
	assert.Equal(t, "Analyze if this Malayalam voice is AI or Human.", e.instruction("Malayalam"))
}

func TestConfigure_SafetyOverrides(t *testing.T) {
	m := &genai.GenerativeModel{}
	e := New("k", "m")
	e.configure(m)
	assert.Empty(t, m.SafetySettings)
	assert.Equal(t, "application/json", m.ResponseMIMEType)

	e.SafetyOff = true
	e.configure(m)
	require.Len(t, m.SafetySettings, 4)
	for _, s := range m.SafetySettings {
		assert.Equal(t, genai.HarmBlockNone, s.Threshold)
	}
}

func TestBlockedAndFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"classification":`), genai.Text(`"HUMAN"}`)}},
	}}}
	assert.False(t, blocked(resp))
	assert.Equal(t, `{"classification":"HUMAN"}`, firstText(resp))

	resp.Candidates[0].FinishReason = genai.FinishReasonSafety
	assert.True(t, blocked(resp))

	assert.Equal(t, "", firstText(nil))
	assert.True(t, blocked(&genai.GenerateContentResponse{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonOther}}))
}
