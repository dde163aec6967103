package handle

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rkuma140394/vox-veritas-api/api/internal/httputil"
	"github.com/rkuma140394/vox-veritas-api/api/internal/util"
)

var statusPage = template.Must(template.New("status").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>VoxVeritas API</title></head>
<body style="font-family:sans-serif;max-width:40em;margin:2em auto">
<h1>VoxVeritas API</h1>
<p>Status: <b>online</b> (version {{.Version}})</p>
<p>Engines: {{range $i, $e := .Engines}}{{if $i}}, {{end}}<code>{{$e}}</code>{{end}}</p>
<h2>Usage</h2>
<pre>POST /detect
x-api-key: &lt;your key&gt;
Content-Type: application/json

{"language": "English", "audio": "&lt;base64 mp3&gt;"}</pre>
<p>Audit log: {{if .Audit}}enabled{{else}}disabled{{end}}</p>
</body>
</html>`))

// Status renders the landing page. It never shows the client key.
func (h *Handle) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = statusPage.Execute(w, struct {
		Version string
		Engines []string
		Audit   bool
	}{h.opts.Version, h.opts.Engines, h.recording()})
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type detectionView struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	RequestID      string    `json:"requestId"`
	AudioSHA256    string    `json:"audioSha256"`
	AudioBytes     int       `json:"audioBytes"`
	Language       string    `json:"language"`
	Engine         string    `json:"engine"`
	Model          string    `json:"model"`
	Status         string    `json:"status"`
	Classification string    `json:"classification,omitempty"`
	Confidence     float64   `json:"confidenceScore,omitempty"`
	ErrorKind      string    `json:"errorKind,omitempty"`
	Attempts       int       `json:"attempts"`
	DurationMs     int64     `json:"durationMs"`
}

// Recent serves GET /api/detections?limit=N from the audit log.
func (h *Handle) Recent(w http.ResponseWriter, r *http.Request) {
	if !h.recording() {
		httputil.WriteError(w, http.StatusNotFound, "Audit log is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.opts.Recorder.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("audit read failed", "request_id", httputil.RequestIDFrom(r.Context()), "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]detectionView, 0, len(rows))
	for _, d := range rows {
		out = append(out, detectionView(d))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "detections": out})
}

type updatePromptRequest struct {
	Text string `json:"text"`
}

// UpdatePrompt serves PUT /api/prompts/{engine}, replacing the engine's
// detection instruction under PROMPT_DIR. Engines read it on the next call.
func (h *Handle) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	if h.opts.PromptDir == "" {
		httputil.WriteError(w, http.StatusNotFound, "Prompt overrides are disabled (PROMPT_DIR is not set)")
		return
	}
	engine := strings.ToLower(chi.URLParam(r, "engine"))
	if !slices.Contains(h.opts.Engines, engine) {
		httputil.WriteError(w, http.StatusNotFound, "Unknown engine")
		return
	}

	var req updatePromptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	path, err := util.SavePrompt(h.opts.PromptDir, engine, "detect", req.Text)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Info("prompt updated", "engine", engine, "path", path, "size", len(req.Text))
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"engine":  engine,
		"size":    len(req.Text),
		"updated": time.Now().UTC().Format(time.RFC3339),
	})
}
