// Package auth carries the authenticated principal through request contexts.
// Credential checks happen upstream; this package only consumes their result.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/core"
	appErrors "fintrack/internal/errors"
)

// Principal is the single normalised identity shape the core accepts.
type Principal struct {
	ID          string
	AccountType core.AccountMode
}

// Valid reports whether p identifies a user.
func (p *Principal) Valid() bool {
	return p != nil && strings.TrimSpace(p.ID) != ""
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}

const (
	HeaderUserID      = "X-User-ID"
	HeaderAccountType = "X-Account-Type"
)

// HeaderResolver builds the principal from gateway-provided headers. Requests
// without a user id are rejected with 401. Paths in public pass through.
func HeaderResolver(public ...string) func(http.Handler) http.Handler {
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := open[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			id := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if id == "" {
				slog.WarnContext(r.Context(), "Request without principal", "path", r.URL.Path)
				writeUnauthorized(w)
				return
			}

			mode := core.Personal
			if raw := r.Header.Get(HeaderAccountType); raw != "" {
				parsed, err := core.ParseAccountMode(raw)
				if err != nil {
					writeUnauthorized(w)
					return
				}
				mode = parsed
			}

			ctx := WithPrincipal(r.Context(), &Principal{ID: id, AccountType: mode})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	e := appErrors.NewUnauthorized("missing or invalid principal")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": e.Code, "message": e.Message},
	})
}
