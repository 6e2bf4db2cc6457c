package auth

import (
	"net/http"
	"strings"
)

// TokenFromHeader extracts the raw JWT from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively; anything else is
// ErrInvalidHeader.
func TokenFromHeader(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrInvalidHeader
	}

	parts := strings.Split(h, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidHeader
	}
	return parts[1], nil
}
