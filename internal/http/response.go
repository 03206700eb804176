package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// MessageResponse is the body of every relay-generated response.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// WriteRawJSON writes an already encoded JSON payload verbatim.
func WriteRawJSON(w http.ResponseWriter, r *http.Request, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("failed to write response")
	}
}

// WriteMessage writes {"message": msg} with the given status.
func WriteMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, r, status, MessageResponse{Message: msg})
}

// WriteRevalidatedJSON writes payload with a strong ETag and
// "Cache-Control: private, no-cache", so clients may keep a copy but must
// revalidate it on every use. A matching If-None-Match is answered with 304.
func WriteRevalidatedJSON(w http.ResponseWriter, r *http.Request, status int, payload []byte) {
	etag := PayloadETag(payload)

	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "private, no-cache")
	h.Add("Vary", "Authorization")
	h.Add("Vary", "Cookie")

	if status == http.StatusOK && etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	WriteRawJSON(w, r, status, payload)
}

// PayloadETag returns a quoted strong ETag for payload.
func PayloadETag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
