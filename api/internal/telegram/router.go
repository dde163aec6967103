package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Classifier is satisfied by *detect.Gateway.
type Classifier interface {
	Classify(ctx context.Context, in types.DetectRequest) (types.DetectResult, detect.Trace, error)
}

type Router struct {
	Bot        Bot
	Classifier Classifier
	Normalizer *detect.Normalizer
	Engines    []string // selectable via /engine
	Timeout    time.Duration
	MaxBytes   int // largest audio file accepted
	Log        *slog.Logger

	prefs   prefStore
	pending sync.WaitGroup
}

// Dispatch handles upd in the background; Wait blocks until every
// dispatched update is done.
func (r *Router) Dispatch(upd tgbotapi.Update) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		r.HandleUpdate(upd)
	}()
}

func (r *Router) Wait() { r.pending.Wait() }

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if f, ok := audioFile(msg); ok {
		r.acceptAudio(msg.Chat.ID, f)
		return
	}
	if msg.Text != "" {
		r.send(msg.Chat.ID, "Send a voice note or an audio file. /start for help.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	case "lang":
		r.handleLangCommand(cid, args)
	case "engine":
		r.handleEngineCommand(cid, args)
	default:
		r.send(cid, "Unknown command. /start for help.")
	}
}

func (r *Router) handleLangCommand(chatID int64, arg string) {
	if arg == "" {
		r.send(chatID, "Current language: "+r.language(chatID)+"\nUsage: /lang Spanish")
		return
	}
	r.prefs.setLanguage(chatID, arg)
	r.send(chatID, "✅ Language: "+arg)
}

func (r *Router) handleEngineCommand(chatID int64, arg string) {
	usage := "Usage: /engine {" + strings.Join(r.Engines, "|") + "}"
	if arg == "" {
		cur := r.prefs.get(chatID).Engine
		if cur == "" {
			cur = "default"
		}
		r.send(chatID, "Current engine: "+cur+"\n"+usage)
		return
	}
	name := strings.ToLower(strings.Fields(arg)[0])
	if name == "openai" {
		name = "gpt"
	}
	if !slices.Contains(r.Engines, name) {
		r.send(chatID, "Unknown engine. "+usage)
		return
	}
	r.prefs.setEngine(chatID, name)
	r.send(chatID, "✅ Engine: "+name)
}

func (r *Router) language(chatID int64) string {
	if l := r.prefs.get(chatID).Language; l != "" {
		return l
	}
	return types.DefaultLanguage
}

func (r *Router) acceptAudio(chatID int64, f fileRef) {
	log := r.logger().With("chat_id", chatID, "file_id", f.ID)
	if r.MaxBytes > 0 && f.Size > r.MaxBytes {
		r.send(chatID, fmt.Sprintf("❌ File is too large (max %d MB).", r.MaxBytes>>20))
		return
	}

	url, err := r.Bot.GetFileDirectURL(f.ID)
	if err != nil {
		log.Error("telegram: get file", "error", err)
		r.send(chatID, "❌ Could not fetch the file from Telegram.")
		return
	}
	data, err := download(url, r.MaxBytes)
	if err != nil {
		log.Error("telegram: download", "error", err)
		r.send(chatID, "❌ Could not fetch the file from Telegram.")
		return
	}
	r.send(chatID, "🎧 Listening…")

	p := r.prefs.get(chatID)
	audio := base64.StdEncoding.EncodeToString(data)
	if f.MIME != "" {
		audio = "data:" + f.MIME + ";base64," + audio
	}
	body := map[string]any{
		"audio":    audio,
		"language": r.language(chatID),
	}
	if p.Engine != "" {
		body["llm_name"] = p.Engine
	}
	in, err := r.normalizer().Normalize(body)
	if err != nil {
		r.send(chatID, formatError(err))
		return
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, tr, err := r.Classifier.Classify(ctx, in)
	if err != nil {
		log.Warn("telegram: classify failed", "engine", tr.Engine, "attempts", tr.Attempts, "kind", detect.KindOf(err).String(), "error", err)
		r.send(chatID, formatError(err))
		return
	}
	log.Info("telegram: classified", "engine", tr.Engine, "attempts", tr.Attempts, "classification", res.Classification)
	r.send(chatID, formatVerdict(res, tr))
}

func (r *Router) normalizer() *detect.Normalizer {
	if r.Normalizer != nil {
		return r.Normalizer
	}
	return detect.NewNormalizer(detect.DefaultMinAudioLength)
}

func (r *Router) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger().Warn("telegram: send", "chat_id", chatID, "error", err)
	}
}
