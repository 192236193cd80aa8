package pessoa

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// AniversariantesDoMes lista quem faz aniversário no mês corrente, por dia.
// Empates mantêm a ordem de leitura: membros, depois visitantes.
func (s *Service) AniversariantesDoMes(ctx context.Context) ([]Aniversariante, error) {
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

	mes := s.Hoje().Month
	lista := []Aniversariante{}
	for _, m := range membros {
		if m.DataNascimento.IsValid() && m.DataNascimento.Month == mes {
			a := aniversariante(m.Pessoa)
			a.Ministerios = m.Ministerios
			lista = append(lista, a)
		}
	}
	for _, v := range visitantes {
		if v.DataNascimento.IsValid() && v.DataNascimento.Month == mes {
			lista = append(lista, aniversariante(v.Pessoa))
		}
	}

	sort.SliceStable(lista, func(i, j int) bool {
		return lista[i].DataNascimento.Day < lista[j].DataNascimento.Day
	})
	return lista, nil
}

func aniversariante(p Pessoa) Aniversariante {
	return Aniversariante{
		ID:             p.ID,
		Nome:           p.Nome,
		DataNascimento: p.DataNascimento,
		Foto:           p.Foto,
		Tipo:           p.Tipo,
	}
}
