package auth

import (
	"context"
	"net/http"
)

type contextKey string

const ctxUID contextKey = "uid"

type Config struct {
	Enabled      bool
	Header       string
	BearerPrefix string
	QueryKey     string
	Secret       string

	PublicPaths []string
}

func (c Config) isPublic(path string) bool {
	for _, p := range c.PublicPaths {
		if p != "" && path == p {
			return true
		}
	}
	return false
}

// Wrap authenticates every non-public request: token -> payload -> optional
// redis session check, then injects the user id into the request context.
// Everything behind it trusts that identity.
func Wrap(cfg Config, sessions *SessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Enabled || cfg.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tok := ExtractToken(r, cfg.Header, cfg.BearerPrefix, cfg.QueryKey)
		if tok == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		p, err := ParseToken(tok, cfg.Secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ok, err := sessions.Validate(r.Context(), tok)
		if err != nil {
			http.Error(w, "auth error", http.StatusUnauthorized)
			return
		}
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUID(r.Context(), p.UserID)))
	})
}

func WithUID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxUID, uid)
}

// UIDFromContext returns the authenticated user id, zero when absent.
func UIDFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(ctxUID).(int64); ok {
		return v
	}
	return 0
}
