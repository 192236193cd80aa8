package pessoa

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// RegistrarPresenca marca presença de hoje. Uma segunda chamada no mesmo dia,
// inclusive concorrente, devolve ErrPresencaJaRegistrada sem duplicar a data.
func (s *Service) RegistrarPresenca(ctx context.Context, tipo Tipo, id string) error {
	p, err := s.repo.GetPessoa(ctx, tipo, id)
	if err != nil {
		if !errors.Is(err, ErrNaoEncontrado) {
			s.metrics.Presenca("erro")
		}
		return err
	}

	hoje := s.Hoje()
	if p.PresenteEm(hoje) {
		s.metrics.Presenca("repetida")
		return ErrPresencaJaRegistrada
	}

	added, err := s.repo.AddPresenca(ctx, tipo, id, hoje)
	if err != nil {
		s.metrics.Presenca("erro")
		return err
	}
	if !added {
		s.metrics.Presenca("repetida")
		return ErrPresencaJaRegistrada
	}

	s.metrics.Presenca("registrada")
	s.invalidarCache(ctx)
	return nil
}

// Presencas devolve as datas de presença da mais recente para a mais antiga.
func (s *Service) Presencas(ctx context.Context, tipo Tipo, id string) ([]string, error) {
	p, err := s.repo.GetPessoa(ctx, tipo, id)
	if err != nil {
		return nil, err
	}
	datas := append([]string(nil), p.Presencas...)
	sort.Sort(sort.Reverse(sort.StringSlice(datas)))
	return datas, nil
}

func (s *Service) PresenteHoje(ctx context.Context, tipo Tipo, id string) (bool, error) {
	p, err := s.repo.GetPessoa(ctx, tipo, id)
	if err != nil {
		return false, err
	}
	return p.PresenteEm(s.Hoje()), nil
}

// ListaPresenca monta a tela de check-in: membros e visitantes cujo nome
// contém busca, ordenados por nome, com a marcação de hoje.
func (s *Service) ListaPresenca(ctx context.Context, busca string) ([]PresencaItem, error) {
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

	hoje := s.Hoje()
	busca = strings.ToLower(strings.TrimSpace(busca))
	itens := make([]PresencaItem, 0, len(membros)+len(visitantes))
	add := func(p Pessoa) {
		if busca != "" && !strings.Contains(strings.ToLower(p.Nome), busca) {
			return
		}
		itens = append(itens, PresencaItem{
			ID:             p.ID,
			Nome:           p.Nome,
			Tipo:           p.Tipo,
			Foto:           p.Foto,
			PresenteHoje:   p.PresenteEm(hoje),
			UltimaPresenca: p.UltimaPresenca,
		})
	}
	for _, m := range membros {
		add(m.Pessoa)
	}
	for _, v := range visitantes {
		add(v.Pessoa)
	}

	cmp := novoComparador()
	sort.SliceStable(itens, func(i, j int) bool {
		return cmp.CompareString(itens[i].Nome, itens[j].Nome) < 0
	})
	return itens, nil
}
