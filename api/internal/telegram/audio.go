package telegram

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fileRef struct {
	ID   string
	Size int
	MIME string
}

// audioFile picks the audio attachment of a message: voice note, audio
// file, or a document with an audio/* MIME type.
func audioFile(msg *tgbotapi.Message) (fileRef, bool) {
	switch {
	case msg.Voice != nil:
		return fileRef{ID: msg.Voice.FileID, Size: msg.Voice.FileSize, MIME: msg.Voice.MimeType}, true
	case msg.Audio != nil:
		return fileRef{ID: msg.Audio.FileID, Size: msg.Audio.FileSize, MIME: msg.Audio.MimeType}, true
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "audio/"):
		return fileRef{ID: msg.Document.FileID, Size: msg.Document.FileSize, MIME: msg.Document.MimeType}, true
	}
	return fileRef{}, false
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

func download(url string, maxBytes int) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	var r io.Reader = resp.Body
	if maxBytes > 0 {
		r = io.LimitReader(resp.Body, int64(maxBytes)+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && len(b) > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	return b, nil
}
