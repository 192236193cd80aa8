package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/http/render"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyRoles   contextKey = "roles"
)

// Auth valida o JWT de acesso e injeta uid e papéis no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				render.Error(w, http.StatusUnauthorized, "AUTH", "token ausente", nil)
				return
			}

			claims, err := jwtManager.ParseAndValidate(strings.TrimSpace(token))
			if err != nil {
				render.Error(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Subject, claims.Roles)))
		})
	}
}

// WithIdentity grava uid e papéis no contexto.
func WithIdentity(ctx context.Context, subject string, roles []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeySubject, subject)
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// GetSubject recupera o uid autenticado.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetRoles recupera os papéis do token.
func GetRoles(ctx context.Context) []string {
	val, _ := ctx.Value(ContextKeyRoles).([]string)
	return val
}

// RequireRole libera a rota para o papel exigido; líder passa sempre.
func RequireRole(papel string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.TemPermissao(GetRoles(r.Context()), papel) {
				render.Error(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a "+papel, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
