package telegram

import (
	"fmt"
	"strings"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

const maxMessageLen = 3900

const startText = "Send me a voice note or an audio file and I will tell you whether the voice sounds human or AI-generated.\n\n" +
	"Commands:\n" +
	"/lang <language> - language spoken in the audio (default English)\n" +
	"/engine <name> - analysis engine\n" +
	"/health - check the bot"

func formatVerdict(res types.DetectResult, tr detect.Trace) string {
	var b strings.Builder
	if res.Classification == types.ClassificationAIGenerated {
		b.WriteString("🤖 Likely AI-generated")
	} else {
		b.WriteString("🧑 Likely human")
	}
	fmt.Fprintf(&b, " (confidence %.0f%%)\n", res.ConfidenceScore*100)
	fmt.Fprintf(&b, "Language: %s\n", res.Language)
	if s := strings.TrimSpace(res.Explanation); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if len(res.ArtifactsFound) > 0 {
		b.WriteString("\nArtifacts: ")
		b.WriteString(strings.Join(res.ArtifactsFound, ", "))
		b.WriteString("\n")
	}
	if tr.Engine != "" {
		fmt.Fprintf(&b, "\nengine: %s", tr.Engine)
		if tr.Model != "" {
			fmt.Fprintf(&b, " (%s)", tr.Model)
		}
	}
	return truncate(b.String())
}

func formatError(err error) string {
	switch detect.KindOf(err) {
	case detect.KindMissingAudio:
		return "❌ I could not read that audio. Try a shorter voice note."
	case detect.KindSafety:
		return "⚠️ The model refused to analyse this audio."
	case detect.KindTransient:
		return "⏳ The model is overloaded right now. Please try again in a minute."
	case detect.KindMalformed:
		return "❌ The model returned an unreadable answer. Please try again."
	default:
		return "❌ Analysis failed."
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageLen {
		return s
	}
	return string(r[:maxMessageLen]) + "…"
}
