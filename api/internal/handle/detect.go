package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/httputil"
	"github.com/rkuma140394/vox-veritas-api/api/internal/store"
	"github.com/rkuma140394/vox-veritas-api/api/internal/telemetry"
)

// Detect serves POST /detect.
func (h *Handle) Detect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := httputil.RequestIDFrom(r.Context())
	log := h.log.With("request_id", reqID)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.BodyLimit))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			log.Warn("request body too large", "limit", tooBig.Limit)
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.fail(w, log, detect.E(detect.KindMissingAudio, "read body", err))
		return
	}

	body, err := parseBody(raw)
	if err != nil {
		h.fail(w, log, err)
		h.observe(reqID, types.DetectRequest{}, types.DetectResult{}, detect.Trace{}, err, start)
		return
	}
	in, err := h.norm.Normalize(body)
	if err != nil {
		h.fail(w, log, err)
		h.observe(reqID, in, types.DetectResult{}, detect.Trace{}, err, start)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), deadline(r, h.opts.Timeout))
	defer cancel()

	log.Info("detect request", "language", in.Language, "mime", in.MIMEType, "audio_bytes", len(in.Audio), "llm_name", in.LLMName)
	res, tr, err := h.cls.Classify(ctx, in)
	h.observe(reqID, in, res, tr, err, start)
	if err != nil {
		h.fail(w, log.With("engine", tr.Engine, "attempts", tr.Attempts), err)
		return
	}

	log.Info("detect ok", "engine", tr.Engine, "attempts", tr.Attempts,
		"classification", res.Classification, "confidence", res.ConfidenceScore,
		"duration_ms", time.Since(start).Milliseconds())
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handle) fail(w http.ResponseWriter, log *slog.Logger, err error) {
	code := httputil.StatusFor(err)
	if code >= 500 {
		log.Error("detect failed", "status", code, "kind", detect.KindOf(err).String(), "error", err)
	} else {
		log.Warn("detect rejected", "status", code, "kind", detect.KindOf(err).String(), "error", err)
	}
	httputil.WriteError(w, code, httputil.PublicMessage(err, h.opts.Verbose))
}

// parseBody accepts a JSON object, a JSON string or raw base64 text.
func parseBody(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '{', '"', '[':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, detect.E(detect.KindMissingAudio, "decode body", err)
		}
		return v, nil
	}
	return string(trimmed), nil
}

// deadline reads X-Request-Timeout or ?timeoutSec, in seconds. A client may
// shorten the server timeout limit, never extend it.
func deadline(r *http.Request, limit time.Duration) time.Duration {
	ts := r.Header.Get("X-Request-Timeout")
	if ts == "" {
		ts = r.URL.Query().Get("timeoutSec")
	}
	v, _ := strconv.Atoi(ts)
	if v <= 0 {
		return limit
	}
	if d := time.Duration(v) * time.Second; d < limit {
		return d
	}
	return limit
}

// observe feeds metrics and the audit log. Audit writes run in the
// background and never affect the response.
func (h *Handle) observe(reqID string, in types.DetectRequest, res types.DetectResult, tr detect.Trace, err error, start time.Time) {
	elapsed := time.Since(start)
	status := string(types.StatusSuccess)
	if err != nil {
		status = detect.KindOf(err).String()
	}

	h.opts.Metrics.RecordRequest(telemetry.RequestLabels{
		Engine:         tr.Engine,
		Status:         status,
		Classification: string(res.Classification),
		Attempts:       tr.Attempts,
		DurationMs:     float64(elapsed.Milliseconds()),
	})

	if !h.recording() {
		return
	}
	row := store.Detection{
		RequestID:      reqID,
		AudioSHA256:    store.AudioDigest(in.Audio),
		AudioBytes:     len(in.Audio),
		Language:       in.Language,
		Engine:         tr.Engine,
		Model:          tr.Model,
		Status:         string(types.StatusSuccess),
		Classification: string(res.Classification),
		Confidence:     res.ConfidenceScore,
		Attempts:       tr.Attempts,
		DurationMs:     elapsed.Milliseconds(),
	}
	if err != nil {
		row.Status = string(types.StatusError)
		row.ErrorKind = status
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.opts.Recorder.Insert(ctx, row); err != nil {
			h.log.Warn("audit insert failed", "request_id", reqID, "error", err)
		}
	}()
}
