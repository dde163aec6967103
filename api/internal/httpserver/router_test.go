package httpserver

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
	"github.com/rkuma140394/vox-veritas-api/api/internal/handle"
	"github.com/rkuma140394/vox-veritas-api/api/internal/ratelimit"
	"github.com/rkuma140394/vox-veritas-api/api/internal/telemetry"
)

const testKey = "my_voice_key_123"

type okEngine struct{}

func (okEngine) Name() string     { return "gemini" }
func (okEngine) GetModel() string { return "gemini-test" }
func (okEngine) Generate(context.Context, types.DetectRequest) (string, error) {
	return `{"classification":"HUMAN","confidenceScore":0.88,"explanation":"Natural breathing"}`, nil
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*httptest.Server, *telemetry.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := telemetry.NewMetrics()
	gw := detect.NewGateway(detect.NewEngines("gemini", okEngine{}), detect.RetryPolicy{}, logger)
	h := handle.New(gw, detect.NewNormalizer(100), handle.Options{
		Engines: []string{"gemini"},
		Metrics: metrics,
		Logger:  logger,
	})
	srv := httptest.NewServer(NewRouter(h, Deps{
		ClientKey: testKey,
		Limiter:   limiter,
		Metrics:   metrics,
		Logger:    logger,
	}))
	t.Cleanup(srv.Close)
	return srv, metrics
}

func detectBody() string {
	audio := base64.StdEncoding.EncodeToString([]byte("ID3" + strings.Repeat("\x02", 300)))
	return `{"language":"Hindi","audio":"` + audio + `"}`
}

func post(t *testing.T, url, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_DetectRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/detect", "/api/detect", "/v1/detect"} {
		resp := post(t, srv.URL+path, testKey, detectBody())
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		b, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(b), `"language":"Hindi"`)
	}
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := post(t, srv.URL+"/detect", "", detectBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"error","message":"Invalid API key or malformed request"}`, string(b))

	resp = post(t, srv.URL+"/detect", "wrong", detectBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_PublicPages(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(b), testKey)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(b))
}

func TestRouter_MetricsAfterDetect(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	post(t, srv.URL+"/detect", testKey, detectBody())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `voxveritas_detect_requests_total{classification="HUMAN",engine="gemini",status="success"} 1`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/detect", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-api-key,content-type")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimited(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	srv, _ := newTestServer(t, ratelimit.NewLimiter(client, 1, nil))

	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/detect", testKey, detectBody()).StatusCode)
	resp := post(t, srv.URL+"/detect", testKey, detectBody())
	if resp.StatusCode == http.StatusOK {
		// crossed a minute boundary between the two calls
		time.Sleep(10 * time.Millisecond)
		resp = post(t, srv.URL+"/detect", testKey, detectBody())
	}
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
