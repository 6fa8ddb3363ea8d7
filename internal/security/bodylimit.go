package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/aws-pricing-api/internal/common"
)

// CodePayloadTooLarge is the error code of rejected oversized bodies.
const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware buffers the request body and rejects payloads above Max with
// HTTP 413 in the canonical error shape.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			b.reject(w)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		_ = r.Body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request body", nil)
			return
		}
		if int64(len(buf)) > b.Max {
			b.reject(w)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) reject(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request entity too large", map[string]any{"max_bytes": b.Max})
}
