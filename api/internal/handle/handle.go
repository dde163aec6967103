package handle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/store"
	"github.com/rkuma140394/vox-veritas-api/api/internal/telemetry"
)

// Classifier is satisfied by *detect.Gateway.
type Classifier interface {
	Classify(ctx context.Context, in types.DetectRequest) (types.DetectResult, detect.Trace, error)
}

// Recorder is satisfied by *store.DetectionRepo.
type Recorder interface {
	Insert(ctx context.Context, d store.Detection) (int64, error)
	Recent(ctx context.Context, limit int) ([]store.Detection, error)
}

type Options struct {
	Timeout   time.Duration // default deadline for one detection
	BodyLimit int64         // bytes
	Verbose   bool          // echo upstream error text to clients
	PromptDir string
	Engines   []string
	Version   string

	Recorder Recorder
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

type Handle struct {
	cls  Classifier
	norm *detect.Normalizer
	opts Options
	log  *slog.Logger

	pending sync.WaitGroup
}

func New(cls Classifier, norm *detect.Normalizer, opts Options) *Handle {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 50 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if norm == nil {
		norm = detect.NewNormalizer(detect.DefaultMinAudioLength)
	}
	return &Handle{cls: cls, norm: norm, opts: opts, log: opts.Logger}
}

// Wait blocks until background audit writes have finished.
func (h *Handle) Wait() { h.pending.Wait() }

func (h *Handle) recording() bool {
	if h.opts.Recorder == nil {
		return false
	}
	if e, ok := h.opts.Recorder.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}
