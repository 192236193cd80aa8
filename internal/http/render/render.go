// Package render padroniza o envelope JSON {data, error} das respostas.
package render

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Envelope é o formato de todas as respostas da API.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON escreve envelope de sucesso.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data})
}

// Error escreve envelope de erro.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// Internal registra err e responde 500 sem expor detalhes.
func Internal(w http.ResponseWriter, r *http.Request, component string, err error) {
	log.Error().Err(err).
		Str("component", component).
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("erro interno")
	Error(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

// Decode lê o corpo JSON da requisição.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
