package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

const MsgUnauthorized = "Invalid API key or malformed request"

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {status:"error", message} envelope.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, types.ErrorResponse{Status: types.StatusError, Message: message})
}

func WriteAuthError(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, MsgUnauthorized)
}

func WriteRateLimitError(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, "Too many requests")
}

// StatusFor maps a detection error to its HTTP status.
func StatusFor(err error) int {
	switch detect.KindOf(err) {
	case detect.KindMissingAudio:
		return http.StatusBadRequest
	case detect.KindAuth:
		return http.StatusUnauthorized
	case detect.KindSafety:
		return http.StatusUnprocessableEntity
	case detect.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing text for err. Upstream detail is only
// exposed when verbose is set.
func PublicMessage(err error, verbose bool) string {
	if verbose {
		return err.Error()
	}
	switch {
	case errors.Is(err, detect.ErrMissingAudio):
		return "Missing or invalid audio data"
	case errors.Is(err, detect.ErrUnauthorized):
		return MsgUnauthorized
	case errors.Is(err, detect.ErrSafetyBlocked):
		return "The audio was blocked by the model's safety filters"
	case errors.Is(err, detect.ErrTransient):
		return "The detection model is temporarily unavailable, please retry"
	case errors.Is(err, detect.ErrMalformedResponse):
		return "The detection model returned an unreadable response"
	default:
		return "Internal server error"
	}
}
