package detect

import (
	"context"
	"log/slog"
	"time"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = time.Second
)

// RetryPolicy: attempt n (1-based) that fails transiently waits BaseDelay*n
// before the next try; at most MaxRetries+1 attempts are made.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Trace describes how a Classify call went; it is filled on success and failure.
type Trace struct {
	Engine   string
	Model    string
	Attempts int
}

// Gateway calls an engine with retries and turns its reply into a DetectResult.
// It holds no per-request state and is safe for concurrent use.
type Gateway struct {
	engines *Engines
	policy  RetryPolicy
	log     *slog.Logger

	// sleep waits d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGateway(engines *Engines, policy RetryPolicy, logger *slog.Logger) *Gateway {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{engines: engines, policy: policy, log: logger, sleep: sleepCtx}
}

func (g *Gateway) Engines() *Engines { return g.engines }

// Classify runs one detection. The returned error is always a *Error.
func (g *Gateway) Classify(ctx context.Context, in types.DetectRequest) (types.DetectResult, Trace, error) {
	var tr Trace
	eng, err := g.engines.GetEngine(in.LLMName)
	if err != nil {
		return types.DetectResult{}, tr, err
	}
	tr.Engine, tr.Model = eng.Name(), eng.GetModel()

	raw, err := g.invoke(ctx, eng, in, &tr)
	if err != nil {
		return types.DetectResult{}, tr, err
	}

	reply, err := ParseReply(raw)
	if err != nil {
		g.log.Warn("malformed model reply", "engine", tr.Engine, "attempts", tr.Attempts, "error", err)
		return types.DetectResult{}, tr, err
	}
	return Coerce(reply, in.Language), tr, nil
}

func (g *Gateway) invoke(ctx context.Context, eng Engine, in types.DetectRequest, tr *Trace) (string, error) {
	maxAttempts := g.policy.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		tr.Attempts = attempt
		raw, err := eng.Generate(ctx, in)
		if err == nil {
			return raw, nil
		}
		if !IsRetriable(err) {
			g.log.Warn("engine call failed", "engine", tr.Engine, "attempt", attempt, "kind", KindOf(err).String(), "error", err)
			return "", tag(err)
		}
		if attempt >= maxAttempts {
			g.log.Error("engine overloaded, retries exhausted", "engine", tr.Engine, "attempts", attempt, "error", err)
			return "", err
		}
		d := g.policy.delay(attempt)
		g.log.Info("engine overloaded, backing off", "engine", tr.Engine, "attempt", attempt, "delay", d.String(), "error", err)
		if serr := g.sleep(ctx, d); serr != nil {
			return "", E(KindTransient, "backoff", serr)
		}
	}
}

// tag makes sure untagged engine errors surface as fatal.
func tag(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return E(KindOf(err), "generate", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
