package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/token"
)

type ctxKey string

const identityKey ctxKey = "tenantIdentity"

// tenantIdentity returns the identity the auth middleware attached.
func tenantIdentity(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

// authenticated verifies the bearer token and attaches the tenant identity.
// Missing header, malformed token, bad signature and expiry all produce the
// same response.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			s.writeError(w, r, common.NewError(common.KindAuthentication, "authentication failed"))
			return
		}

		p, err := token.Verify(raw, s.secret, s.now())
		if err != nil {
			s.writeError(w, r, common.NewError(common.KindAuthentication, "authentication failed"))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, p.Identity)
		next(w, r.WithContext(ctx))
	}
}

// rateLimited gates unauthenticated endpoints by client address.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: errorBody{
				Kind:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		next(w, r)
	}
}
