package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

func TestWebhookPath(t *testing.T) {
	p := WebhookPath("123:abc")
	assert.True(t, strings.HasPrefix(p, "/webhook/"))
	assert.Len(t, strings.TrimPrefix(p, "/webhook/"), 16)
	assert.Equal(t, p, WebhookPath("123:abc"))
	assert.NotEqual(t, p, WebhookPath("123:abd"))
	assert.NotContains(t, p, "abc")
	// FNV-1a 64 of the empty string is the offset basis.
	assert.Equal(t, "/webhook/cbf29ce484222325", WebhookPath(""))
}

func TestWebhookHandler(t *testing.T) {
	got := make(chan int, 1)
	h := WebhookHandler(
		func(*http.Request) (*tgbotapi.Update, error) { return &tgbotapi.Update{UpdateID: 9}, nil },
		func(u tgbotapi.Update) { got <- u.UpdateID },
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/webhook/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case id := <-got:
		assert.Equal(t, 9, id)
	case <-time.After(time.Second):
		t.Fatal("update not handled")
	}

	bad := WebhookHandler(
		func(*http.Request) (*tgbotapi.Update, error) { return nil, errors.New("bad json") },
		func(tgbotapi.Update) { t.Error("must not be called") },
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	w = httptest.NewRecorder()
	bad(w, httptest.NewRequest(http.MethodPost, "/webhook/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_ShutdownWaitsForDispatched(t *testing.T) {
	release := make(chan struct{})
	cls := &blockingClassifier{release: release, res: types.DetectResult{
		Status:          types.StatusSuccess,
		Classification:  types.ClassificationHuman,
		ConfidenceScore: 0.8,
		Language:        "English",
	}}
	r, bot := newTestRouter(t, cls)
	h := WebhookHandler(
		func(*http.Request) (*tgbotapi.Update, error) { u := voice(); return &u, nil },
		r.Dispatch,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/webhook/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Wait returned while a classification was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
	assert.Contains(t, bot.last(), "Likely human (confidence 80%)")
}

type blockingClassifier struct {
	release chan struct{}
	res     types.DetectResult
}

func (b *blockingClassifier) Classify(ctx context.Context, _ types.DetectRequest) (types.DetectResult, detect.Trace, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return types.DetectResult{}, detect.Trace{}, ctx.Err()
	}
	return b.res, detect.Trace{Engine: "gemini", Attempts: 1}, nil
}
