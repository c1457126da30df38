package server

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/gazekit/platform/internal/errors"
)

// adminAuth guards mutating endpoints with a bcrypt-hashed admin key. An
// empty hash disables the check.
func adminAuth(keyHash string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if keyHash == "" {
			next(w, r)
			return
		}

		key := r.Header.Get(AdminKeyHeader)
		if key == "" {
			writeError(w, errors.New(errors.Unauthorized, "missing admin key"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			writeError(w, errors.New(errors.Unauthorized, "invalid admin key"))
			return
		}
		next(w, r)
	}
}
