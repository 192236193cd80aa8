package usuario

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/http/middleware"
	"github.com/gestaozabele/igreja/internal/http/render"
)

const refreshCookie = "igreja_refresh"

// Handler expõe login, sessão e administração de usuários.
type Handler struct {
	service    *Service
	devCookies bool
}

// NewHandler cria o handler. Com devCookies o refresh sai sem Secure e com
// SameSite=Lax, para funcionar em http://localhost.
func NewHandler(service *Service, devCookies bool) *Handler {
	return &Handler{service: service, devCookies: devCookies}
}

// RegisterPublicRoutes monta as rotas de sessão, que não exigem token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
}

// RegisterRoutes monta as rotas autenticadas.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.PapelLider))
		r.Get("/usuarios", h.handleListar)
		r.Post("/usuarios", h.handleCriar)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Senha == "" {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	sessao, err := h.service.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}
	h.writeSessao(w, sessao)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		render.Error(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	sessao, err := h.service.Refresh(r.Context(), c.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		h.handleAuthError(w, r, err)
		return
	}
	h.writeSessao(w, sessao)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		if err := h.service.Logout(r.Context(), c.Value); err != nil {
			render.Internal(w, r, "usuario", err)
			return
		}
	}
	h.clearRefreshCookie(w)
	render.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	perfil, err := h.service.Perfil(r.Context(), middleware.GetSubject(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNaoEncontrado) {
			render.Error(w, http.StatusUnauthorized, "AUTH", "perfil não encontrado", nil)
			return
		}
		render.Internal(w, r, "usuario", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{
		"user":  perfil,
		"roles": middleware.GetRoles(r.Context()),
	})
}

func (h *Handler) handleListar(w http.ResponseWriter, r *http.Request) {
	perfis, err := h.service.Listar(r.Context())
	if err != nil {
		render.Internal(w, r, "usuario", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"usuarios": perfis})
}

func (h *Handler) handleCriar(w http.ResponseWriter, r *http.Request) {
	var payload NovoUsuario
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	perfil, err := h.service.Criar(r.Context(), payload)
	switch {
	case err == nil:
		render.JSON(w, http.StatusCreated, perfil)
	case errors.Is(err, ErrValidacao), errors.Is(err, ErrPapelInvalido):
		render.Error(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrEmailEmUso):
		render.Error(w, http.StatusConflict, "EMAIL_EM_USO", err.Error(), nil)
	default:
		render.Internal(w, r, "usuario", err)
	}
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCredenciaisInvalidas):
		render.Error(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, auth.ErrRefreshInvalido):
		render.Error(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
	case errors.Is(err, ErrPapelInvalido):
		render.Error(w, http.StatusForbidden, "FORBIDDEN", "usuário sem papel válido", nil)
	default:
		render.Internal(w, r, "usuario", err)
	}
}

func (h *Handler) writeSessao(w http.ResponseWriter, sessao *Sessao) {
	h.setRefreshCookie(w, sessao.RefreshToken, sessao.RefreshExpira)
	render.JSON(w, http.StatusOK, map[string]any{
		"access_token": sessao.AccessToken,
		"expires_at":   sessao.AccessExpira,
		"user":         sessao.Perfil,
	})
}

func (h *Handler) cookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteNoneMode,
	}
	if h.devCookies {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := h.cookie(token)
	c.Expires = expires
	http.SetCookie(w, c)
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	c := h.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}
