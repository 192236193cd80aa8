package usuario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/formato"
	"github.com/gestaozabele/igreja/internal/util"
)

// Repositorio descreve o acesso a contas usado pelo serviço.
type Repositorio interface {
	CredencialPorEmail(context.Context, string) (credencial, error)
	Salvar(context.Context, credencial, Perfil) error
	Perfil(context.Context, string) (Perfil, error)
	Listar(context.Context) ([]Perfil, error)
}

// Service concentra cadastro de usuários e sessões.
type Service struct {
	repo    Repositorio
	jwt     *auth.JWTManager
	sessoes *auth.Sessoes
}

func NewService(repo Repositorio, jwtManager *auth.JWTManager, sessoes *auth.Sessoes) *Service {
	return &Service{repo: repo, jwt: jwtManager, sessoes: sessoes}
}

// JWT expõe o gerenciador usado pelo middleware de autenticação.
func (s *Service) JWT() *auth.JWTManager {
	return s.jwt
}

// Criar valida, confere se o e-mail está livre e grava credencial e perfil.
func (s *Service) Criar(ctx context.Context, in NovoUsuario) (Perfil, error) {
	email := formato.Email(in.Email)
	nome := strings.TrimSpace(in.Nome)
	role := strings.ToLower(strings.TrimSpace(in.Role))

	if err := util.ValidateEmail(email); err != nil {
		return Perfil{}, fmt.Errorf("%w: %v", ErrValidacao, err)
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return Perfil{}, fmt.Errorf("%w: %v", ErrValidacao, err)
	}
	if err := util.RequireString(nome, "nome"); err != nil {
		return Perfil{}, fmt.Errorf("%w: %v", ErrValidacao, err)
	}
	if !auth.PapelValido(role) {
		return Perfil{}, fmt.Errorf("%w: %q", ErrPapelInvalido, in.Role)
	}

	_, err := s.repo.CredencialPorEmail(ctx, email)
	switch {
	case err == nil:
		return Perfil{}, ErrEmailEmUso
	case !errors.Is(err, ErrNaoEncontrado):
		return Perfil{}, err
	}

	hash, err := auth.HashSenha(in.Senha)
	if err != nil {
		return Perfil{}, err
	}

	uid := util.NewID()
	perfil := Perfil{UID: uid, Email: email, Nome: nome, Role: role}
	if err := s.repo.Salvar(ctx, credencial{UID: uid, Email: email, SenhaHash: hash}, perfil); err != nil {
		return Perfil{}, err
	}
	log.Info().Str("uid", uid).Str("role", role).Msg("usuario: conta criada")
	return perfil, nil
}

// Listar devolve todos os perfis ordenados por nome.
func (s *Service) Listar(ctx context.Context) ([]Perfil, error) {
	perfis, err := s.repo.Listar(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(perfis, func(i, j int) bool {
		return strings.ToLower(perfis[i].Nome) < strings.ToLower(perfis[j].Nome)
	})
	return perfis, nil
}

func (s *Service) Perfil(ctx context.Context, uid string) (Perfil, error) {
	return s.repo.Perfil(ctx, uid)
}

// Login confere e-mail e senha e abre uma sessão.
func (s *Service) Login(ctx context.Context, email, senha string) (*Sessao, error) {
	email = formato.Email(email)
	c, err := s.repo.CredencialPorEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNaoEncontrado) {
		return nil, err
	}
	if !auth.ConferirSenha(senha, c.SenhaHash) {
		log.Warn().Msg("login: credenciais inválidas")
		return nil, ErrCredenciaisInvalidas
	}

	perfil, err := s.repo.Perfil(ctx, c.UID)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrado) {
			log.Warn().Str("uid", c.UID).Msg("login: credencial sem perfil")
			return nil, ErrCredenciaisInvalidas
		}
		return nil, err
	}
	return s.abrirSessao(ctx, perfil)
}

// Refresh consome o refresh token e emite um novo par de tokens.
func (s *Service) Refresh(ctx context.Context, raw string) (*Sessao, error) {
	uid, err := s.sessoes.Consumir(ctx, raw)
	if err != nil {
		return nil, err
	}
	perfil, err := s.repo.Perfil(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNaoEncontrado) {
			return nil, auth.ErrRefreshInvalido
		}
		return nil, err
	}
	return s.abrirSessao(ctx, perfil)
}

// Logout invalida o refresh token.
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.sessoes.Encerrar(ctx, raw)
}

func (s *Service) abrirSessao(ctx context.Context, perfil Perfil) (*Sessao, error) {
	if !auth.PapelValido(perfil.Role) {
		log.Warn().Str("uid", perfil.UID).Str("role", perfil.Role).Msg("login: papel desconhecido")
		return nil, ErrPapelInvalido
	}

	access, accessExp, err := s.jwt.GenerateAccessToken(perfil.UID, perfil.Role)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sessoes.Abrir(ctx, perfil.UID)
	if err != nil {
		return nil, err
	}
	return &Sessao{
		AccessToken:   access,
		AccessExpira:  accessExp,
		RefreshToken:  refresh,
		RefreshExpira: refreshExp,
		Perfil:        perfil,
	}, nil
}
