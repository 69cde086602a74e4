package httpserver

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

const secretKeyHeader = "Secret-Key"

// secretDigest is the hex SHA-256 of the configured secret, which is what
// clients send.
func secretDigest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func (s *Server) verifySecretKey(header string) bool {
	got := strings.ToLower(strings.TrimSpace(header))
	if got == "" || s.cfg.SecretKey == "" {
		return false
	}
	want := secretDigest(s.cfg.SecretKey)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) requireSecretKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifySecretKey(r.Header.Get(secretKeyHeader)) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid Secret-Key header")
			return
		}
		next.ServeHTTP(w, r)
	})
}
