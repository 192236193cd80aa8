package pessoa

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/http/middleware"
	"github.com/gestaozabele/igreja/internal/http/render"
	"github.com/gestaozabele/igreja/internal/storage"
)

// Handler expõe o cadastro de pessoas via HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes monta as rotas; o router externo já exige autenticação.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/pessoas/duplicatas", h.handleDuplicatas)
	r.Post("/membros", h.handleCriarMembro)

	r.Get("/presenca", h.handleListaPresenca)
	r.Post("/presenca/{tipo}/{id}", h.handleRegistrarPresenca)
	r.Get("/presenca/{tipo}/{id}", h.handlePresencas)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.PapelVoluntario))
		r.Post("/visitantes", h.handleCriarVisitante)
		r.Post("/visitantes/{id}/historico", h.handleAdicionarVisita)
		r.Get("/visitantes/{id}/historico", h.handleHistorico)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.PapelLider))
		r.Get("/dashboard/resumo", h.handleResumo)
		r.Get("/dashboard/visitantes-por-mes", h.handleVisitantesPorMes)
		r.Get("/dashboard/membros-por-ministerio", h.handleMembrosPorMinisterio)
		r.Get("/aniversariantes", h.handleAniversariantes)

		r.Get("/visitantes", h.handleListarVisitantes)
		r.Get("/visitantes/{id}", h.handleVisitante)

		r.Get("/membros", h.handleListarMembros)
		r.Get("/membros/exportar", h.handleExportarMembros)
		r.Get("/membros/{id}", h.handleMembro)
		r.Put("/membros/{id}", h.handleAtualizarMembro)
		r.Delete("/membros/{id}", h.handleExcluirMembro)
		r.Post("/membros/{id}/foto", h.handleUploadFoto)
	})
}

type duplicatasRequest struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
}

func (h *Handler) handleDuplicatas(w http.ResponseWriter, r *http.Request) {
	var payload duplicatasRequest
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	similares, err := h.service.FindSimilar(r.Context(), payload.Nome, payload.Email, payload.Telefone)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"similares": similares})
}

type membroRequest struct {
	Membro
	ConfirmarDuplicata bool `json:"confirmarDuplicata"`
}

func (h *Handler) handleCriarMembro(w http.ResponseWriter, r *http.Request) {
	var payload membroRequest
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	id, similares, err := h.service.CriarMembro(r.Context(), payload.Membro, payload.ConfirmarDuplicata)
	h.writeCriacao(w, r, id, similares, err)
}

type visitanteRequest struct {
	Visitante
	ConfirmarDuplicata bool `json:"confirmarDuplicata"`
}

func (h *Handler) handleCriarVisitante(w http.ResponseWriter, r *http.Request) {
	var payload visitanteRequest
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	id, similares, err := h.service.CriarVisitante(r.Context(), payload.Visitante, payload.ConfirmarDuplicata)
	h.writeCriacao(w, r, id, similares, err)
}

func (h *Handler) writeCriacao(w http.ResponseWriter, r *http.Request, id string, similares []PessoaResumo, err error) {
	if errors.Is(err, ErrPossivelDuplicata) {
		render.Error(w, http.StatusConflict, "DUPLICATA", "já existem pessoas parecidas cadastradas; confirme para continuar", map[string]any{"similares": similares})
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleListaPresenca(w http.ResponseWriter, r *http.Request) {
	itens, err := h.service.ListaPresenca(r.Context(), r.URL.Query().Get("busca"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"dia": h.service.Hoje(), "pessoas": itens})
}

func (h *Handler) handleRegistrarPresenca(w http.ResponseWriter, r *http.Request) {
	tipo, err := ParseTipo(chi.URLParam(r, "tipo"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.service.RegistrarPresenca(r.Context(), tipo, chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, map[string]any{"presenca": h.service.Hoje()})
}

func (h *Handler) handlePresencas(w http.ResponseWriter, r *http.Request) {
	tipo, err := ParseTipo(chi.URLParam(r, "tipo"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	datas, err := h.service.Presencas(r.Context(), tipo, chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	hoje := h.service.Hoje().String()
	presente := false
	for _, d := range datas {
		if d == hoje {
			presente = true
			break
		}
	}
	render.JSON(w, http.StatusOK, map[string]any{"presencas": datas, "presenteHoje": presente})
}

func (h *Handler) handleAdicionarVisita(w http.ResponseWriter, r *http.Request) {
	var payload Visita
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if err := h.service.AdicionarVisita(r.Context(), chi.URLParam(r, "id"), payload); err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (h *Handler) handleHistorico(w http.ResponseWriter, r *http.Request) {
	historico, err := h.service.HistoricoVisitas(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"historico": historico})
}

func (h *Handler) handleResumo(w http.ResponseWriter, r *http.Request) {
	resumo, err := h.service.Resumo(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, resumo)
}

func (h *Handler) handleVisitantesPorMes(w http.ResponseWriter, r *http.Request) {
	meses, err := h.service.VisitantesPorMes(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"meses": meses})
}

func (h *Handler) handleMembrosPorMinisterio(w http.ResponseWriter, r *http.Request) {
	ministerios, err := h.service.MembrosPorMinisterio(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"ministerios": ministerios})
}

func (h *Handler) handleAniversariantes(w http.ResponseWriter, r *http.Request) {
	lista, err := h.service.AniversariantesDoMes(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	hoje := h.service.Hoje()
	render.JSON(w, http.StatusOK, map[string]any{"mes": int(hoje.Month), "aniversariantes": lista})
}

func paginacao(r *http.Request) (Ordenacao, int, int, error) {
	q := r.URL.Query()
	ord := Ordenacao{Campo: q.Get("ordenarPor"), Direcao: q.Get("direcao")}
	pagina, err := inteiroOpcional(q.Get("pagina"))
	if err != nil {
		return ord, 0, 0, fmt.Errorf("%w: pagina", ErrValidacao)
	}
	porPagina, err := inteiroOpcional(q.Get("porPagina"))
	if err != nil || porPagina > 100 {
		return ord, 0, 0, fmt.Errorf("%w: porPagina", ErrValidacao)
	}
	return ord, pagina, porPagina, nil
}

func inteiroOpcional(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("número inválido")
	}
	return n, nil
}

func filtroMembros(r *http.Request) FiltroMembros {
	q := r.URL.Query()
	return FiltroMembros{Ministerio: q.Get("ministerio"), Status: q.Get("status"), Busca: q.Get("busca")}
}

func (h *Handler) handleListarVisitantes(w http.ResponseWriter, r *http.Request) {
	ord, pagina, porPagina, err := paginacao(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	page, err := h.service.ListarVisitantes(r.Context(), r.URL.Query().Get("busca"), ord, pagina, porPagina)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleVisitante(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Visitante(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleListarMembros(w http.ResponseWriter, r *http.Request) {
	ord, pagina, porPagina, err := paginacao(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	page, err := h.service.ListarMembros(r.Context(), filtroMembros(r), ord, pagina, porPagina)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleExportarMembros(w http.ResponseWriter, r *http.Request) {
	nome, conteudo, err := h.service.ExportarMembros(r.Context(), filtroMembros(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+nome+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(conteudo)
}

func (h *Handler) handleMembro(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Membro(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleAtualizarMembro(w http.ResponseWriter, r *http.Request) {
	var payload AtualizacaoMembro
	if err := render.Decode(r, &payload); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if err := h.service.AtualizarMembro(r.Context(), chi.URLParam(r, "id"), payload); err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleExcluirMembro(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ExcluirMembro(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleUploadFoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, TamanhoMaximoFoto+1<<20)
	if err := r.ParseMultipartForm(TamanhoMaximoFoto); err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "envie a foto em multipart/form-data (máx. 5 MiB)", nil)
		return
	}
	file, header, err := r.FormFile("foto")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "VALIDATION", "campo foto ausente", nil)
		return
	}
	defer file.Close()

	conteudo, err := io.ReadAll(io.LimitReader(file, TamanhoMaximoFoto+1))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(conteudo)
	}

	url, err := h.service.UploadFoto(r.Context(), chi.URLParam(r, "id"), header.Filename, contentType, conteudo)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"foto": url})
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidacao), errors.Is(err, ErrFotoInvalida):
		render.Error(w, http.StatusBadRequest, "VALIDATION", mensagem(err), nil)
	case errors.Is(err, ErrNaoEncontrado):
		render.Error(w, http.StatusNotFound, "NOT_FOUND", "pessoa não encontrada", nil)
	case errors.Is(err, ErrPresencaJaRegistrada):
		render.Error(w, http.StatusConflict, "PRESENCA_JA_REGISTRADA", "presença já registrada hoje", nil)
	case errors.Is(err, storage.ErrNaoConfigurado):
		render.Error(w, http.StatusServiceUnavailable, "STORAGE_INDISPONIVEL", "upload de fotos não configurado", nil)
	default:
		render.Internal(w, r, "pessoa", err)
	}
}

func mensagem(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
