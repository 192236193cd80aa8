// Package pessoa concentra o cadastro de membros e visitantes: gravação,
// presença, duplicatas, aniversariantes, histórico de visitas e relatórios.
package pessoa

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Tipo identifica a coleção de origem da pessoa.
type Tipo string

const (
	TipoMembro    Tipo = "membro"
	TipoVisitante Tipo = "visitante"
)

const (
	ColecaoMembros    = "membros"
	ColecaoVisitantes = "visitantes"
)

// Colecao retorna o nome da coleção do tipo.
func (t Tipo) Colecao() string {
	if t == TipoVisitante {
		return ColecaoVisitantes
	}
	return ColecaoMembros
}

// ParseTipo aceita "membro" ou "visitante".
func ParseTipo(raw string) (Tipo, error) {
	switch Tipo(strings.ToLower(strings.TrimSpace(raw))) {
	case TipoMembro:
		return TipoMembro, nil
	case TipoVisitante:
		return TipoVisitante, nil
	}
	return "", fmt.Errorf("%w: tipo %q", ErrValidacao, raw)
}

var (
	ErrValidacao            = errors.New("dados inválidos")
	ErrNaoEncontrado        = errors.New("pessoa não encontrada")
	ErrDocumentoInvalido    = errors.New("documento malformado")
	ErrPresencaJaRegistrada = errors.New("presença já registrada hoje")
	ErrPossivelDuplicata    = errors.New("possível duplicata")
	ErrFotoInvalida         = errors.New("foto inválida")
)

// Origens aceitas para comoSoube.
var origensVisita = map[string]struct{}{
	"amigos":           {},
	"redes_sociais":    {},
	"passou_em_frente": {},
	"indicacao":        {},
	"outro":            {},
}

// Pessoa reúne os campos comuns a membros e visitantes.
type Pessoa struct {
	ID             string      `json:"id"`
	Tipo           Tipo        `json:"tipo"`
	Nome           string      `json:"nome"`
	Email          string      `json:"email,omitempty"`
	Telefone       string      `json:"telefone,omitempty"`
	DataNascimento civil.Date  `json:"dataNascimento"`
	Foto           string      `json:"foto,omitempty"`
	Presencas      []string    `json:"presencas"`
	Observacoes    string      `json:"observacoes,omitempty"`
	UltimaPresenca *civil.Date `json:"ultimaPresenca,omitempty"`
}

func (p *Pessoa) base() *Pessoa { return p }

// PresenteEm indica se a data consta nas presenças.
func (p Pessoa) PresenteEm(dia civil.Date) bool {
	alvo := dia.String()
	for _, d := range p.Presencas {
		if d == alvo {
			return true
		}
	}
	return false
}

// Endereco é o endereço postal do membro.
type Endereco struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Numero      string `json:"numero"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Cidade      string `json:"cidade"`
	UF          string `json:"uf"`
}

// Membro pertence à coleção membros.
type Membro struct {
	Pessoa
	Ministerios   []string    `json:"ministerios"`
	DataMembresia *civil.Date `json:"dataMembresia"`
	Endereco      Endereco    `json:"endereco"`
}

// Visita é uma entrada do histórico do visitante.
type Visita struct {
	Data        civil.Date `json:"data"`
	Observacoes string     `json:"observacoes"`
}

// Visitante pertence à coleção visitantes.
type Visitante struct {
	Pessoa
	PrimeiraVisita civil.Date `json:"primeiraVisita"`
	ComoSoube      string     `json:"comoSoube"`
	Historico      []Visita   `json:"historico"`
}

// PessoaResumo é o item devolvido pela checagem de duplicatas.
type PessoaResumo struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Email    string `json:"email,omitempty"`
	Telefone string `json:"telefone,omitempty"`
	Tipo     Tipo   `json:"tipo"`
}

// Aniversariante é o item do relatório mensal.
type Aniversariante struct {
	ID             string     `json:"id"`
	Nome           string     `json:"nome"`
	DataNascimento civil.Date `json:"dataNascimento"`
	Foto           string     `json:"foto,omitempty"`
	Tipo           Tipo       `json:"tipo"`
	Ministerios    []string   `json:"ministerios,omitempty"`
}

// PresencaItem alimenta a tela de check-in.
type PresencaItem struct {
	ID             string      `json:"id"`
	Nome           string      `json:"nome"`
	Tipo           Tipo        `json:"tipo"`
	Foto           string      `json:"foto,omitempty"`
	PresenteHoje   bool        `json:"presenteHoje"`
	UltimaPresenca *civil.Date `json:"ultimaPresenca,omitempty"`
}

// FiltroMembros restringe a listagem de membros.
type FiltroMembros struct {
	Ministerio string
	Status     string
	Busca      string
}

const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// AtualizacaoMembro carrega apenas os campos informados na edição.
type AtualizacaoMembro struct {
	Nome            *string     `json:"nome"`
	Email           *string     `json:"email"`
	Telefone        *string     `json:"telefone"`
	DataNascimento  *civil.Date `json:"dataNascimento"`
	Ministerios     *[]string   `json:"ministerios"`
	DataMembresia   *civil.Date `json:"dataMembresia"`
	LimparMembresia bool        `json:"limparDataMembresia"`
	Observacoes     *string     `json:"observacoes"`
	Endereco        *Endereco   `json:"endereco"`
	Foto            *string     `json:"foto"`
}
