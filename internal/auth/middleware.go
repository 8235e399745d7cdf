package auth

import (
	"net/http"
	"strings"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

// Bearer authenticates requests carrying "Authorization: Bearer <id token>".
// Such requests run under an ephemeral session for the token subject; requests
// without the header pass through to the cookie session.
func Bearer(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				httpx.RespondError(w, ErrInvalidToken)
				return
			}
			claims, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			sess := shared.NewEphemeralSession(claims.Subject)
			sess.Set(SessionKeyIDToken, strings.TrimSpace(raw))
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

// IsBearer reports whether r authenticates with a bearer token.
func IsBearer(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
}
