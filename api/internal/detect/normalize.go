package detect

import (
	"fmt"
	"strings"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/util"
)

// DefaultAudioKeys is the probe order for the audio payload.
var DefaultAudioKeys = []string{
	"audio",
	"audioBase64",
	"audioData",
	"Audio Base64 Format",
	"file",
	"data",
	"base64",
}

// DefaultLanguageKeys is the probe order for the target language.
var DefaultLanguageKeys = []string{"language", "Language"}

// DefaultMinAudioLength is the shortest accepted base64 payload, in characters.
const DefaultMinAudioLength = 100

// Normalizer turns a loosely-shaped inbound body into a DetectRequest.
type Normalizer struct {
	AudioKeys      []string
	LanguageKeys   []string
	MinAudioLength int
}

func NewNormalizer(minAudioLength int) *Normalizer {
	if minAudioLength <= 0 {
		minAudioLength = DefaultMinAudioLength
	}
	return &Normalizer{
		AudioKeys:      DefaultAudioKeys,
		LanguageKeys:   DefaultLanguageKeys,
		MinAudioLength: minAudioLength,
	}
}

// ExtractAudio returns the first non-empty string under the configured keys,
// or the body itself when it is a long enough raw string, with any data: URI
// prefix removed.
func (n *Normalizer) ExtractAudio(body any) (string, error) {
	raw, err := n.rawAudio(body)
	if err != nil {
		return "", err
	}
	return util.StripDataURL(raw), nil
}

func (n *Normalizer) rawAudio(body any) (string, error) {
	switch b := body.(type) {
	case string:
		if len(strings.TrimSpace(b)) >= n.MinAudioLength {
			return strings.TrimSpace(b), nil
		}
	case map[string]any:
		if s := firstString(b, n.AudioKeys); s != "" {
			return s, nil
		}
	}
	return "", E(KindMissingAudio, "extract audio", fmt.Errorf("no audio field (tried %s)", strings.Join(n.AudioKeys, ", ")))
}

// ExtractLanguage probes the language keys, defaulting to English.
func (n *Normalizer) ExtractLanguage(body any) string {
	if m, ok := body.(map[string]any); ok {
		if s := firstString(m, n.LanguageKeys); s != "" {
			return s
		}
	}
	return types.DefaultLanguage
}

// Normalize validates body and derives a DetectRequest. body is never modified.
func (n *Normalizer) Normalize(body any) (types.DetectRequest, error) {
	raw, err := n.rawAudio(body)
	if err != nil {
		return types.DetectRequest{}, err
	}
	hint := util.DataURLMIME(raw)
	b64 := util.StripDataURL(raw)
	if len(b64) < n.MinAudioLength {
		return types.DetectRequest{}, E(KindMissingAudio, "validate audio",
			fmt.Errorf("payload is %d characters, need at least %d", len(b64), n.MinAudioLength))
	}
	audio, err := util.DecodeBase64(b64)
	if err != nil || len(audio) == 0 {
		return types.DetectRequest{}, E(KindMissingAudio, "decode audio", fmt.Errorf("invalid base64: %v", err))
	}

	req := types.DetectRequest{
		AudioB64: b64,
		Audio:    audio,
		MIMEType: util.PickMIME("", hint, audio, types.DefaultMIMEType),
		Language: n.ExtractLanguage(body),
	}
	if m, ok := body.(map[string]any); ok {
		req.LLMName = firstString(m, []string{"llm_name", "engine"})
	}
	return req, nil
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
