package pessoa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/formato"
	"github.com/gestaozabele/igreja/internal/metrics"
	"github.com/gestaozabele/igreja/internal/storage"
	"github.com/gestaozabele/igreja/internal/util"
)

// diasAtividade é a janela que define um membro ativo.
const diasAtividade = 30

const cacheTTL = 60 * time.Second

// Repositorio descreve o acesso a dados usado pelo serviço.
type Repositorio interface {
	CreateMembro(context.Context, Membro) (string, error)
	CreateVisitante(context.Context, Visitante) (string, error)
	GetMembro(context.Context, string) (Membro, error)
	GetVisitante(context.Context, string) (Visitante, error)
	GetPessoa(context.Context, Tipo, string) (Pessoa, error)
	ListMembros(context.Context) ([]Membro, error)
	ListVisitantes(context.Context) ([]Visitante, error)
	ListMembrosFiltrados(context.Context, FiltroMembros, civil.Date) ([]Membro, error)
	Count(context.Context, string) (int, error)
	CountSince(context.Context, string, string, civil.Date) (int, error)
	UpdateMembro(context.Context, string, map[string]any) error
	DeleteMembro(context.Context, string) error
	AddPresenca(context.Context, Tipo, string, civil.Date) (bool, error)
	AppendVisita(context.Context, string, Visita) error
}

type cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Options reúne dependências opcionais do serviço.
type Options struct {
	Cache    cache
	Uploader storage.Uploader
	Metrics  *metrics.Metrics
	Location *time.Location
	Now      func() time.Time
}

// Service é a fachada única do cadastro, construída uma vez no processo.
type Service struct {
	repo     Repositorio
	cache    cache
	uploader storage.Uploader
	metrics  *metrics.Metrics
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo Repositorio, opts Options) *Service {
	s := &Service{
		repo:     repo,
		cache:    opts.Cache,
		uploader: opts.Uploader,
		metrics:  opts.Metrics,
		loc:      opts.Location,
		now:      opts.Now,
	}
	if s.uploader == nil {
		s.uploader = storage.Desativado{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Hoje é a data civil corrente no fuso da igreja.
func (s *Service) Hoje() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

func normalizarPessoa(p *Pessoa) {
	p.Nome = formato.Nome(strings.TrimSpace(p.Nome))
	p.Email = formato.Email(p.Email)
	p.Telefone = formato.LimparTelefone(p.Telefone)
	p.Observacoes = strings.TrimSpace(p.Observacoes)
	p.Foto = strings.TrimSpace(p.Foto)
}

func validarPessoa(p Pessoa) error {
	if err := util.RequireString(p.Nome, "nome"); err != nil {
		return fmt.Errorf("%w: %v", ErrValidacao, err)
	}
	if err := util.RequireString(p.Telefone, "telefone"); err != nil {
		return fmt.Errorf("%w: %v", ErrValidacao, err)
	}
	if err := util.ValidateOptionalEmail(p.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrValidacao, err)
	}
	if !p.DataNascimento.IsValid() {
		return fmt.Errorf("%w: dataNascimento obrigatória", ErrValidacao)
	}
	return nil
}

func limparMinisterios(in []string) []string {
	out := make([]string, 0, len(in))
	vistos := make(map[string]struct{}, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := vistos[m]; ok {
			continue
		}
		vistos[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// CriarMembro grava um membro. Sem confirmar, interrompe com ErrPossivelDuplicata
// e devolve as pessoas parecidas já cadastradas.
func (s *Service) CriarMembro(ctx context.Context, m Membro, confirmar bool) (string, []PessoaResumo, error) {
	normalizarPessoa(&m.Pessoa)
	if err := validarPessoa(m.Pessoa); err != nil {
		return "", nil, err
	}
	m.Ministerios = limparMinisterios(m.Ministerios)
	m.DataMembresia = dataOuNil(m.DataMembresia)
	m.Endereco.CEP = formato.CEP(m.Endereco.CEP)
	m.Endereco.UF = strings.ToUpper(strings.TrimSpace(m.Endereco.UF))
	m.Presencas = []string{}
	m.UltimaPresenca = nil

	if !confirmar {
		similares, err := s.FindSimilar(ctx, m.Nome, m.Email, m.Telefone)
		if err != nil {
			return "", nil, err
		}
		if len(similares) > 0 {
			s.metrics.DuplicataSinalizada(string(TipoMembro))
			return "", similares, ErrPossivelDuplicata
		}
	}

	id, err := s.repo.CreateMembro(ctx, m)
	if err != nil {
		return "", nil, err
	}
	s.metrics.PessoaCadastrada(string(TipoMembro))
	s.invalidarCache(ctx)
	return id, nil, nil
}

// CriarVisitante grava um visitante com a primeira visita já no histórico.
func (s *Service) CriarVisitante(ctx context.Context, v Visitante, confirmar bool) (string, []PessoaResumo, error) {
	normalizarPessoa(&v.Pessoa)
	if err := validarPessoa(v.Pessoa); err != nil {
		return "", nil, err
	}
	v.ComoSoube = strings.TrimSpace(v.ComoSoube)
	if _, ok := origensVisita[v.ComoSoube]; !ok {
		return "", nil, fmt.Errorf("%w: comoSoube %q", ErrValidacao, v.ComoSoube)
	}
	if !v.PrimeiraVisita.IsValid() {
		v.PrimeiraVisita = s.Hoje()
	}
	v.Historico = []Visita{{Data: v.PrimeiraVisita, Observacoes: v.Observacoes}}
	v.Presencas = []string{}
	v.UltimaPresenca = nil

	if !confirmar {
		similares, err := s.FindSimilar(ctx, v.Nome, v.Email, v.Telefone)
		if err != nil {
			return "", nil, err
		}
		if len(similares) > 0 {
			s.metrics.DuplicataSinalizada(string(TipoVisitante))
			return "", similares, ErrPossivelDuplicata
		}
	}

	id, err := s.repo.CreateVisitante(ctx, v)
	if err != nil {
		return "", nil, err
	}
	s.metrics.PessoaCadastrada(string(TipoVisitante))
	s.invalidarCache(ctx)
	return id, nil, nil
}

func (s *Service) Membro(ctx context.Context, id string) (Membro, error) {
	return s.repo.GetMembro(ctx, id)
}

func (s *Service) Visitante(ctx context.Context, id string) (Visitante, error) {
	return s.repo.GetVisitante(ctx, id)
}

// AtualizarMembro grava somente os campos presentes na atualização.
func (s *Service) AtualizarMembro(ctx context.Context, id string, in AtualizacaoMembro) error {
	fields := map[string]any{}
	if in.Nome != nil {
		nome := formato.Nome(strings.TrimSpace(*in.Nome))
		if nome == "" {
			return fmt.Errorf("%w: nome obrigatório", ErrValidacao)
		}
		fields["nome"] = nome
	}
	if in.Email != nil {
		email := formato.Email(*in.Email)
		if err := util.ValidateOptionalEmail(email); err != nil {
			return fmt.Errorf("%w: %v", ErrValidacao, err)
		}
		fields["email"] = email
	}
	if in.Telefone != nil {
		tel := formato.LimparTelefone(*in.Telefone)
		if tel == "" {
			return fmt.Errorf("%w: telefone obrigatório", ErrValidacao)
		}
		fields["telefone"] = tel
	}
	if in.DataNascimento != nil {
		if !in.DataNascimento.IsValid() {
			return fmt.Errorf("%w: dataNascimento inválida", ErrValidacao)
		}
		fields["dataNascimento"] = in.DataNascimento.String()
	}
	if in.Ministerios != nil {
		fields["ministerios"] = limparMinisterios(*in.Ministerios)
	}
	switch {
	case in.LimparMembresia:
		fields["dataMembresia"] = nil
	case in.DataMembresia != nil:
		fields["dataMembresia"] = textoData(in.DataMembresia)
	}
	if in.Observacoes != nil {
		fields["observacoes"] = strings.TrimSpace(*in.Observacoes)
	}
	if in.Endereco != nil {
		end := *in.Endereco
		end.CEP = formato.CEP(end.CEP)
		end.UF = strings.ToUpper(strings.TrimSpace(end.UF))
		fields["endereco"] = camposEndereco(end)
	}
	if in.Foto != nil {
		fields["foto"] = strings.TrimSpace(*in.Foto)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: nenhum campo para atualizar", ErrValidacao)
	}

	if err := s.repo.UpdateMembro(ctx, id, fields); err != nil {
		return err
	}
	s.invalidarCache(ctx)
	return nil
}

func (s *Service) ExcluirMembro(ctx context.Context, id string) error {
	if err := s.repo.DeleteMembro(ctx, id); err != nil {
		return err
	}
	s.invalidarCache(ctx)
	return nil
}

func (s *Service) chaveResumo() string {
	hoje := s.Hoje()
	return fmt.Sprintf("pessoa:resumo:%04d-%02d", hoje.Year, int(hoje.Month))
}

const (
	chaveVisitantesMes = "pessoa:visitantes-por-mes"
	chaveMinisterios   = "pessoa:membros-por-ministerio"
)

func (s *Service) invalidarCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.chaveResumo(), chaveVisitantesMes, chaveMinisterios).Err(); err != nil {
		log.Warn().Err(err).Msg("pessoa: falha ao invalidar cache")
	}
}

// comCache lê key do Redis ou executa load e guarda o resultado por cacheTTL.
func comCache[T any](ctx context.Context, c cache, key string, load func(context.Context) (T, error)) (T, error) {
	if c != nil {
		if data, err := c.Get(ctx, key).Bytes(); err == nil {
			var cached T
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("pessoa: cache indisponível")
		}
	}

	val, err := load(ctx)
	if err != nil {
		return val, err
	}

	if c != nil {
		if payload, err := json.Marshal(val); err == nil {
			_ = c.Set(ctx, key, payload, cacheTTL).Err()
		}
	}
	return val, nil
}
