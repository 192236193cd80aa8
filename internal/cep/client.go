// Package cep consulta endereços pelo CEP no serviço público ViaCEP.
package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/igreja/internal/formato"
)

const (
	defaultBaseURL = "https://viacep.com.br/ws"
	cacheTTL       = 24 * time.Hour
)

var (
	// ErrCEPInvalido indica CEP sem 8 dígitos.
	ErrCEPInvalido = errors.New("CEP inválido")
	// ErrCEPNaoEncontrado indica CEP inexistente na base consultada.
	ErrCEPNaoEncontrado = errors.New("CEP não encontrado")
	// ErrCEPIndisponivel indica falha na consulta; o cadastro segue com endereço manual.
	ErrCEPIndisponivel = errors.New("consulta de CEP indisponível")
)

// Endereco é o subconjunto da resposta do ViaCEP usado pelo cadastro.
type Endereco struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
}

type viaCEPResponse struct {
	Endereco
	Erro any `json:"erro,omitempty"`
}

type cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Client busca endereços com cache opcional em Redis.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cache
	logger     zerolog.Logger
}

// Config descreve dependências do cliente.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      cache
	Logger     zerolog.Logger
}

// New cria cliente com defaults sensatos.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{baseURL: base, httpClient: httpClient, cache: cfg.Cache, logger: cfg.Logger}
}

// Buscar consulta o endereço do CEP (com ou sem máscara).
func (c *Client) Buscar(ctx context.Context, cep string) (*Endereco, error) {
	digits := formato.LimparCEP(cep)
	if len(digits) != 8 {
		return nil, ErrCEPInvalido
	}

	key := "cep:" + digits
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
			var end Endereco
			if json.Unmarshal(data, &end) == nil {
				return &end, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("cep: cache indisponível")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, digits), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("cep", digits).Msg("cep: consulta falhou")
		return nil, ErrCEPIndisponivel
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, ErrCEPNaoEncontrado
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().Int("status", resp.StatusCode).Str("cep", digits).Str("body", strings.TrimSpace(string(body))).Msg("cep: status inesperado")
		return nil, ErrCEPIndisponivel
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn().Err(err).Str("cep", digits).Msg("cep: resposta inválida")
		return nil, ErrCEPIndisponivel
	}
	if erroFlag(payload.Erro) {
		return nil, ErrCEPNaoEncontrado
	}

	end := payload.Endereco
	if c.cache != nil {
		if data, err := json.Marshal(end); err == nil {
			_ = c.cache.Set(ctx, key, data, cacheTTL).Err()
		}
	}
	return &end, nil
}

// ViaCEP responde "erro": true (ou "true" em algumas versões) para CEP inexistente.
func erroFlag(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	}
	return false
}
