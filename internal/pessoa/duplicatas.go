package pessoa

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/igreja/internal/formato"
)

// FindSimilar procura membros e visitantes que possam ser a mesma pessoa.
// A regra é permissiva: nome igual, um nome contido no outro, e-mail igual ou
// telefone igual. O resultado traz membros antes de visitantes, sem ranking.
func (s *Service) FindSimilar(ctx context.Context, nome, email, telefone string) ([]PessoaResumo, error) {
	alvo := chaveNome(nome)
	if alvo == "" {
		return nil, fmt.Errorf("%w: nome obrigatório", ErrValidacao)
	}
	email = formato.Email(email)
	telefone = formato.LimparTelefone(telefone)

	var (
		membros    []Membro
		visitantes []Visitante
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		membros, err = s.repo.ListMembros(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		visitantes, err = s.repo.ListVisitantes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	similares := []PessoaResumo{}
	for _, m := range membros {
		if parecida(alvo, email, telefone, m.Pessoa) {
			similares = append(similares, resumo(m.Pessoa))
		}
	}
	for _, v := range visitantes {
		if parecida(alvo, email, telefone, v.Pessoa) {
			similares = append(similares, resumo(v.Pessoa))
		}
	}
	return similares, nil
}

func chaveNome(nome string) string {
	return strings.ToLower(strings.TrimSpace(nome))
}

func parecida(alvo, email, telefone string, p Pessoa) bool {
	nome := chaveNome(p.Nome)
	switch {
	case nome == alvo:
		return true
	case email != "" && p.Email == email:
		return true
	case telefone != "" && p.Telefone == telefone:
		return true
	case nome != "" && (strings.Contains(nome, alvo) || strings.Contains(alvo, nome)):
		return true
	}
	return false
}

func resumo(p Pessoa) PessoaResumo {
	return PessoaResumo{ID: p.ID, Nome: p.Nome, Email: p.Email, Telefone: p.Telefone, Tipo: p.Tipo}
}
