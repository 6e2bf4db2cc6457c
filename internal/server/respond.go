package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/drinks/internal/auth"
)

// messages are the error envelope texts per status.
var messages = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "resource not found",
	http.StatusMethodNotAllowed:    "method not allowed",
	http.StatusUnprocessableEntity: "unprocessable",
	http.StatusInternalServerError: "internal server error",
	http.StatusServiceUnavailable:  "service unavailable",
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("response encode failed", "err", err)
	}
}

// writeError answers with the standard failure envelope.
func writeError(w http.ResponseWriter, status int) {
	msg, ok := messages[status]
	if !ok {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: status, Message: msg})
}

// writeAuthError is the auth.FailFunc for every protected route.  The
// message names the specific failure, e.g. "token expired".
func writeAuthError(w http.ResponseWriter, _ *http.Request, err *auth.Error) {
	writeJSON(w, err.Status, errorBody{Error: err.Status, Message: err.Message})
}
