package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/cep"
	"github.com/gestaozabele/igreja/internal/config"
	httpmiddleware "github.com/gestaozabele/igreja/internal/http/middleware"
	"github.com/gestaozabele/igreja/internal/http/render"
	"github.com/gestaozabele/igreja/internal/metrics"
	"github.com/gestaozabele/igreja/internal/pessoa"
	"github.com/gestaozabele/igreja/internal/usuario"
)

// Check verifica uma dependência externa para o /ready.
type Check func(context.Context) error

// Deps reúne os serviços montados em cmd/api.
type Deps struct {
	Pessoas  *pessoa.Service
	Usuarios *usuario.Service
	CEP      *cep.Client
	Metrics  *metrics.Metrics
	Checks   map[string]Check
}

type Handler struct {
	checks map[string]Check
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	h := &Handler{checks: deps.Checks}
	publicLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst)
	authLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst)

	usuarioHandler := usuario.NewHandler(deps.Usuarios, cfg.DevCookies)
	pessoaHandler := pessoa.NewHandler(deps.Pessoas)
	cepHandler := cep.NewHandler(deps.CEP)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging(deps.Metrics))
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(publicLimiter))
		usuarioHandler.RegisterPublicRoutes(public)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.Usuarios.JWT()))
		private.Use(httpmiddleware.UserRateLimit(authLimiter))

		usuarioHandler.RegisterRoutes(private)
		cepHandler.RegisterRoutes(private)
		pessoaHandler.RegisterRoutes(private)
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready executa as verificações de dependências (store, Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	nomes := make([]string, 0, len(h.checks))
	for nome := range h.checks {
		nomes = append(nomes, nome)
	}
	sort.Strings(nomes)

	falhas := map[string]string{}
	for _, nome := range nomes {
		if err := h.checks[nome](ctx); err != nil {
			log.Warn().Err(err).Str("dependencia", nome).Msg("ready: dependência indisponível")
			falhas[nome] = err.Error()
		}
	}
	if len(falhas) > 0 {
		render.Error(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", falhas)
		return
	}
	render.JSON(w, http.StatusOK, map[string]bool{"ready": true})
}
