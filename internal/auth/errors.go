package auth

import "net/http"

// Error is an authentication or authorisation failure carrying the HTTP
// status the caller should answer with.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidHeader   = &Error{"invalid auth header", http.StatusUnauthorized}
	ErrTokenExpired    = &Error{"token expired", http.StatusUnauthorized}
	ErrInvalidClaims   = &Error{"invalid claims: check audience and issuer", http.StatusUnauthorized}
	ErrMalformed       = &Error{"invalid header: Unable to parse auth token", http.StatusUnauthorized}
	ErrKeyNotFound     = &Error{"invalid header: Unable to find appropriate key", http.StatusUnauthorized}
	ErrKeysUnavailable = &Error{"signing keys unavailable", http.StatusServiceUnavailable}

	ErrNoPermissions     = &Error{"Permissions not included in JWT", http.StatusBadRequest}
	ErrPermissionMissing = &Error{"Permission not found.", http.StatusForbidden}
)
