package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{detect.E(detect.KindMissingAudio, "normalize", nil), http.StatusBadRequest},
		{detect.E(detect.KindAuth, "auth", nil), http.StatusUnauthorized},
		{detect.E(detect.KindSafety, "gemini.generate", nil), http.StatusUnprocessableEntity},
		{detect.E(detect.KindTransient, "gemini.generate", nil), http.StatusServiceUnavailable},
		{detect.E(detect.KindMalformed, "parse", nil), http.StatusInternalServerError},
		{detect.E(detect.KindFatal, "gemini.generate", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestPublicMessageHidesUpstreamDetail(t *testing.T) {
	err := detect.E(detect.KindFatal, "gemini.generate", errors.New("googleapi: Error 403: key sk-leaked"))
	assert.Equal(t, "Internal server error", PublicMessage(err, false))
	assert.Contains(t, PublicMessage(err, true), "sk-leaked")

	assert.Equal(t, "Missing or invalid audio data",
		PublicMessage(detect.E(detect.KindMissingAudio, "normalize", nil), false))
}

func TestWriteAuthError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAuthError(w)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid API key or malformed request"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", seen)
}
