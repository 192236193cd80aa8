// Package usuario cuida das contas da secretaria: cadastro, login e sessões.
package usuario

import (
	"errors"
	"time"
)

const (
	ColecaoUsuarios    = "users"
	ColecaoCredenciais = "credenciais"
)

var (
	ErrValidacao            = errors.New("dados inválidos")
	ErrEmailEmUso           = errors.New("email já cadastrado")
	ErrCredenciaisInvalidas = errors.New("credenciais inválidas")
	ErrNaoEncontrado        = errors.New("usuário não encontrado")
	ErrPapelInvalido        = errors.New("papel inválido")
)

// Perfil é o documento users/{uid}.
type Perfil struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Nome  string `json:"nome"`
	Role  string `json:"role"`
}

// NovoUsuario reúne os dados do cadastro feito pelo líder.
type NovoUsuario struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
	Nome  string `json:"nome"`
	Role  string `json:"role"`
}

// credencial é o documento credenciais/{uid}.
type credencial struct {
	UID       string `json:"-"`
	Email     string `json:"email"`
	SenhaHash string `json:"senhaHash"`
}

// Sessao é o resultado de login e refresh.
type Sessao struct {
	AccessToken   string
	AccessExpira  time.Time
	RefreshToken  string
	RefreshExpira time.Time
	Perfil        Perfil
}
