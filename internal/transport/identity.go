package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/workflow"
)

// Identification headers. They name the caller; they do not authenticate it.
const (
	HeaderRole   = "X-Role"
	HeaderUserID = "X-User-Id"
)

type callerKey struct{}

// CallerFromContext returns the caller identified by IdentityMiddleware.
func CallerFromContext(ctx context.Context) (workflow.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(workflow.Caller)
	return c, ok
}

// IdentityMiddleware reads X-Role and X-User-Id into the request context. A
// request naming an unknown role is rejected; a request naming none passes
// through without a caller.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderRole))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		role, ok := team.Parse(raw)
		if !ok {
			writeError(w, r, workflow.ErrUnknownRole)
			return
		}
		caller := workflow.Caller{Role: role, UserID: strings.TrimSpace(r.Header.Get(HeaderUserID))}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCaller rejects requests that carry no X-Role.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFromContext(r.Context()); !ok {
			writeError(w, r, errMissingRole)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerOf(r *http.Request) workflow.Caller {
	c, _ := CallerFromContext(r.Context())
	return c
}
