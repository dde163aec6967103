package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
)

// classify maps a genai client error onto a detect.Kind. A rejected upstream
// credential is fatal for us; KindAuth is reserved for the caller's key.
func classify(err error) detect.Kind {
	var be *genai.BlockedError
	if errors.As(err, &be) {
		return detect.KindSafety
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return kindForHTTP(ge.Code)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
			return detect.KindTransient
		default:
			return detect.KindFatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return detect.KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return detect.KindTransient
	}
	return detect.KindFatal
}

func kindForHTTP(code int) detect.Kind {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway,
		http.StatusGatewayTimeout, http.StatusInternalServerError:
		return detect.KindTransient
	default:
		return detect.KindFatal
	}
}
