package cep

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/igreja/internal/http/render"
)

type buscador interface {
	Buscar(ctx context.Context, cep string) (*Endereco, error)
}

// Handler expõe a consulta de CEP para o formulário de cadastro.
type Handler struct {
	client buscador
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cep/{cep}", h.handleBuscar)
}

func (h *Handler) handleBuscar(w http.ResponseWriter, r *http.Request) {
	end, err := h.client.Buscar(r.Context(), chi.URLParam(r, "cep"))
	switch {
	case err == nil:
		render.JSON(w, http.StatusOK, end)
	case errors.Is(err, ErrCEPInvalido):
		render.Error(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrCEPNaoEncontrado), errors.Is(err, ErrCEPIndisponivel):
		render.Error(w, http.StatusNotFound, "CEP_NAO_ENCONTRADO", "CEP não encontrado; preencha o endereço manualmente", nil)
	default:
		render.Internal(w, r, "cep", err)
	}
}
