package detect

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/util"
)

// ParseReply decodes the model text: as-is or fenced, then the outermost {...}.
func ParseReply(raw string) (map[string]any, error) {
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return nil, E(KindMalformed, "parse reply", errors.New("empty response"))
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(txt), &m); err == nil && m != nil {
		return m, nil
	}
	if obj, ok := util.ExtractJSONObject(txt); ok {
		if err := json.Unmarshal([]byte(obj), &m); err == nil && m != nil {
			return m, nil
		}
	}
	return nil, E(KindMalformed, "parse reply", errors.New("no JSON object in response: "+util.Truncate(txt, 200)))
}

// Coerce maps a parsed reply onto DetectResult, filling every field.
func Coerce(reply map[string]any, requestedLanguage string) types.DetectResult {
	if strings.TrimSpace(requestedLanguage) == "" {
		requestedLanguage = types.DefaultLanguage
	}
	res := types.DetectResult{
		Status:          types.StatusSuccess,
		Classification:  coerceClassification(lookup(reply, "classification", "Classification", "label", "verdict")),
		ConfidenceScore: coerceConfidence(lookup(reply, "confidenceScore", "confidence_score", "confidence")),
		Explanation:     types.DefaultExplanation,
		Language:        pickLanguage(requestedLanguage, asString(lookup(reply, "language", "languageDetected", "detectedLanguage"))),
		ArtifactsFound:  coerceStrings(lookup(reply, "artifactsFound", "artifacts_found", "artifacts")),
	}
	if s := asString(lookup(reply, "explanation", "reasoning", "reason")); s != "" {
		res.Explanation = s
	}
	return res
}

func lookup(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// coerceClassification accepts common spellings; anything else is HUMAN.
func coerceClassification(v any) types.Classification {
	s := strings.ToUpper(asString(v))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "AI_GENERATED", "AI", "AI_VOICE", "SYNTHETIC", "GENERATED":
		return types.ClassificationAIGenerated
	case "HUMAN":
		return types.ClassificationHuman
	default:
		return types.DefaultClassification
	}
}

func coerceConfidence(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return types.DefaultConfidence
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return types.DefaultConfidence
		}
	default:
		return types.DefaultConfidence
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
		return types.DefaultConfidence
	}
	return f
}

func coerceStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s := asString(it); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// pickLanguage keeps the requested language unless the model named it more
// precisely: the requested name followed by a region qualifier, as in
// "Spanish (Mexico)" or "English-US". Anything else is ignored.
func pickLanguage(requested, model string) string {
	model = strings.TrimSpace(model)
	if len(model) <= len(requested) || !strings.EqualFold(model[:len(requested)], requested) {
		return requested
	}
	rest := model[len(requested):]
	var qualifier string
	switch {
	case rest[0] == '(' || (rest[0] == ' ' && strings.HasPrefix(strings.TrimSpace(rest), "(")):
		q := strings.TrimSpace(rest)
		if !strings.HasSuffix(q, ")") || strings.Count(q, "(") != 1 || strings.Count(q, ")") != 1 {
			return requested
		}
		qualifier = q[1 : len(q)-1]
	case rest[0] == '-' || (rest[0] == ' ' && strings.HasPrefix(strings.TrimSpace(rest), "-")):
		qualifier = strings.TrimPrefix(strings.TrimSpace(rest), "-")
	default:
		return requested
	}
	if !isRegion(qualifier) {
		return requested
	}
	return model
}

// isRegion accepts a short run of letters, spaces and hyphens.
func isRegion(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 40 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' {
			return false
		}
	}
	return true
}
