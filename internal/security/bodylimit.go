package security

import (
	"net/http"

	"github.com/noah-isme/toko-offers/internal/common"
)

// BodyLimit rejects oversized request payloads before they reach a handler.
type BodyLimit struct {
	// Max defaults to common.MaxBodyBytes.
	Max int64
}

// Middleware answers 413 PAYLOAD_TOO_LARGE when the declared length exceeds
// Max and caps the body reader otherwise.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	limit := b.Max
	if limit <= 0 {
		limit = common.MaxBodyBytes
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
