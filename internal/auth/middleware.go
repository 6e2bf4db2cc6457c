package auth

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yanizio/drinks/internal/metrics"
)

// FailFunc writes the response for a rejected request.
type FailFunc func(w http.ResponseWriter, r *http.Request, err *Error)

// RequirePermission returns chi middleware that verifies the bearer token
// and checks perm before calling next.  Verified claims are attached to the
// request context.
func RequirePermission(a Authenticator, perm string, fail FailFunc) func(http.Handler) http.Handler {
	if fail == nil {
		fail = func(w http.ResponseWriter, _ *http.Request, err *Error) {
			http.Error(w, err.Message, err.Status)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authorise(r, a, perm)
			if err != nil {
				var ae *Error
				if !errors.As(err, &ae) {
					ae = ErrMalformed
				}
				metrics.AuthFailuresTotal.WithLabelValues(strconv.Itoa(ae.Status)).Inc()
				zap.S().Debugw("request rejected", "perm", perm, "path", r.URL.Path, "reason", ae.Message)
				fail(w, r, ae)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func authorise(r *http.Request, a Authenticator, perm string) (*Claims, error) {
	raw, err := TokenFromHeader(r)
	if err != nil {
		return nil, err
	}
	claims, err := a.Verify(r.Context(), raw)
	if err != nil {
		return nil, err
	}
	if err := CheckPermission(perm, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
