package gpt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/util"
)

const defaultPrompt = `Listen to the attached {{language}} voice recording and decide whether it is an AI-generated voice (TTS, voice clone, vocoder) or a real human.
Answer strictly as JSON with classification ("AI_GENERATED" | "HUMAN"), confidenceScore (0.0-1.0), explanation, language, artifactsFound.`

type Engine struct {
	APIKey    string
	Model     string
	BaseURL   string
	PromptDir string
	httpc     *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		httpc:  &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (tests, custom timeouts).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

// client is built per call so BaseURL and the HTTP client can change after New.
// The SDK does not retry; the gateway owns the retry policy.
func (e *Engine) client() openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(e.APIKey),
		option.WithHTTPClient(e.httpc),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(e.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")))
	}
	return openai.NewClient(opts...)
}

func (e *Engine) Generate(ctx context.Context, in types.DetectRequest) (string, error) {
	const op = "openai generate"
	if e.APIKey == "" {
		return "", detect.E(detect.KindFatal, op, errors.New("OPENAI_API_KEY is empty"))
	}
	format, ok := audioFormat(in.MIMEType)
	if !ok {
		return "", detect.E(detect.KindFatal, op, fmt.Errorf("unsupported audio MIME %q (need wav|mp3)", in.MIMEType))
	}

	cl := e.client()
	resp, err := cl.Chat.Completions.New(ctx, e.params(in, format))
	if err != nil {
		return "", detect.E(classify(err), op, err)
	}
	if len(resp.Choices) == 0 {
		return "", detect.E(detect.KindMalformed, op, errors.New("no choices"))
	}
	ch := resp.Choices[0]
	if ch.FinishReason == "content_filter" || strings.TrimSpace(ch.Message.Refusal) != "" {
		return "", detect.E(detect.KindSafety, op, errors.New("refused: "+util.Truncate(ch.Message.Refusal, 200)))
	}
	if strings.TrimSpace(ch.Message.Content) == "" {
		return "", detect.E(detect.KindMalformed, op, errors.New("empty content"))
	}
	return ch.Message.Content, nil
}

func (e *Engine) params(in types.DetectRequest, format string) openai.ChatCompletionNewParams {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(e.instruction(in.Language)),
		openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data:   in.AudioB64,
			Format: format,
		}),
	}
	return openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(e.Model),
		Modalities:  []string{"text"},
		Temperature: openai.Float(0),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "voice_detection",
					Strict: openai.Bool(true),
					Schema: responseSchema(),
				},
			},
		},
	}
}

func (e *Engine) instruction(language string) string {
	tpl, err := util.LoadPrompt(e.PromptDir, e.Name(), "detect")
	if err != nil {
		tpl = defaultPrompt
	}
	if strings.TrimSpace(language) == "" {
		language = types.DefaultLanguage
	}
	return util.RenderPrompt(tpl, map[string]string{"language": language})
}

// responseSchema is strict: OpenAI wants every property listed as required.
func responseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"classification":  map[string]any{"type": "string", "enum": []string{"AI_GENERATED", "HUMAN"}},
			"confidenceScore": map[string]any{"type": "number"},
			"explanation":     map[string]any{"type": "string"},
			"language":        map[string]any{"type": "string"},
			"artifactsFound":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"classification", "confidenceScore", "explanation", "language", "artifactsFound"},
	}
}

func audioFormat(mime string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav", true
	case "audio/mp3", "audio/mpeg", "":
		return "mp3", true
	}
	return "", false
}

func classify(err error) detect.Kind {
	var ae *openai.Error
	if errors.As(err, &ae) {
		return kindForStatus(ae.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return detect.KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return detect.KindTransient
	}
	return detect.KindFatal
}

func kindForStatus(code int) detect.Kind {
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return detect.KindTransient
	default:
		return detect.KindFatal
	}
}
