package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/util"
)

const defaultPrompt = `You are an audio forensics analyst. Listen to the attached {{language}} voice recording and decide whether the voice is AI-generated (text-to-speech, voice cloning, vocoder output) or a real human speaker.
Consider prosody, breathing, micro-pauses, spectral artifacts, phase coherence and background consistency.
Return ONLY a JSON object with:
- classification: "AI_GENERATED" or "HUMAN"
- confidenceScore: number between 0.0 and 1.0
- explanation: one or two sentences justifying the verdict
- language: the language actually spoken
- artifactsFound: list of short names of detected synthesis artifacts (may be empty)`

type Engine struct {
	APIKey    string
	Model     string
	PromptDir string
	SafetyOff bool
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate sends the audio blob and the instruction to Gemini and returns the raw reply text.
func (e *Engine) Generate(ctx context.Context, in types.DetectRequest) (string, error) {
	const op = "gemini generate"
	if e.APIKey == "" {
		return "", detect.E(detect.KindFatal, op, errors.New("GEMINI_API_KEY is empty"))
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", detect.E(detect.KindFatal, op, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", detect.E(detect.KindFatal, op, errors.New("model is nil"))
	}
	e.configure(m)

	parts := []genai.Part{
		&genai.Blob{MIMEType: in.MIMEType, Data: in.Audio},
		genai.Text(e.instruction(in.Language)),
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", detect.E(classify(err), op, err)
	}
	if blocked(resp) {
		return "", detect.E(detect.KindSafety, op, errors.New("response withheld by safety filter"))
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", detect.E(detect.KindMalformed, op, errors.New("empty response"))
	}
	return txt, nil
}

func (e *Engine) configure(m *genai.GenerativeModel) {
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
	if e.SafetyOff {
		m.SafetySettings = []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		}
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

// ResponseSchema is the structured-output contract given to the model.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"status":          {Type: genai.TypeString},
			"classification":  {Type: genai.TypeString, Enum: []string{string(types.ClassificationAIGenerated), string(types.ClassificationHuman)}},
			"confidenceScore": {Type: genai.TypeNumber},
			"explanation":     {Type: genai.TypeString},
			"language":        {Type: genai.TypeString},
			"artifactsFound":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"classification", "confidenceScore", "explanation"},
	}
}

func blocked(resp *genai.GenerateContentResponse) bool {
	if resp == nil {
		return false
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return true
	}
	for _, c := range resp.Candidates {
		if c != nil && c.FinishReason == genai.FinishReasonSafety {
			return true
		}
	}
	return false
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
