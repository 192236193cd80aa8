package pessoa

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/igreja/internal/formato"
)

// Resumo alimenta os cartões do painel.
type Resumo struct {
	TotalVisitantes int `json:"totalVisitantes"`
	VisitantesMes   int `json:"visitantesMes"`
	TotalMembros    int `json:"totalMembros"`
	MembrosAtivos   int `json:"membrosAtivos"`
}

// VisitantesNoMes é um ponto do gráfico de visitantes.
type VisitantesNoMes struct {
	Mes        string `json:"mes"`
	Referencia string `json:"referencia"`
	Quantidade int    `json:"quantidade"`
}

// MinisterioTotal é um ponto do gráfico de ministérios.
type MinisterioTotal struct {
	Ministerio string `json:"ministerio"`
	Quantidade int    `json:"quantidade"`
}

// Resumo conta visitantes e membros, totais e do mês corrente.
func (s *Service) Resumo(ctx context.Context) (Resumo, error) {
	return comCache(ctx, s.cache, s.chaveResumo(), s.carregarResumo)
}

func (s *Service) carregarResumo(ctx context.Context) (Resumo, error) {
	hoje := s.Hoje()
	inicioMes := civil.Date{Year: hoje.Year, Month: hoje.Month, Day: 1}

	var r Resumo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.TotalVisitantes, err = s.repo.Count(gctx, ColecaoVisitantes)
		return
	})
	g.Go(func() (err error) {
		r.VisitantesMes, err = s.repo.CountSince(gctx, ColecaoVisitantes, "primeiraVisita", inicioMes)
		return
	})
	g.Go(func() (err error) {
		r.TotalMembros, err = s.repo.Count(gctx, ColecaoMembros)
		return
	})
	g.Go(func() (err error) {
		r.MembrosAtivos, err = s.repo.CountSince(gctx, ColecaoMembros, "ultimaPresenca", inicioMes)
		return
	})
	if err := g.Wait(); err != nil {
		return Resumo{}, err
	}
	return r, nil
}

// VisitantesPorMes agrupa visitantes pelo mês da primeira visita em ordem cronológica.
func (s *Service) VisitantesPorMes(ctx context.Context) ([]VisitantesNoMes, error) {
	return comCache(ctx, s.cache, chaveVisitantesMes, func(ctx context.Context) ([]VisitantesNoMes, error) {
		visitantes, err := s.repo.ListVisitantes(ctx)
		if err != nil {
			return nil, err
		}
		return agruparPorMes(visitantes), nil
	})
}

func agruparPorMes(visitantes []Visitante) []VisitantesNoMes {
	porRef := map[string]*VisitantesNoMes{}
	for _, v := range visitantes {
		d := v.PrimeiraVisita
		if !d.IsValid() {
			continue
		}
		ref := fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
		bucket, ok := porRef[ref]
		if !ok {
			bucket = &VisitantesNoMes{Mes: formato.MesAno(d), Referencia: ref}
			porRef[ref] = bucket
		}
		bucket.Quantidade++
	}

	out := make([]VisitantesNoMes, 0, len(porRef))
	for _, b := range porRef {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Referencia < out[j].Referencia })
	return out
}

// MembrosPorMinisterio conta membros por ministério; um membro conta em cada
// ministério a que pertence.
func (s *Service) MembrosPorMinisterio(ctx context.Context) ([]MinisterioTotal, error) {
	return comCache(ctx, s.cache, chaveMinisterios, func(ctx context.Context) ([]MinisterioTotal, error) {
		membros, err := s.repo.ListMembros(ctx)
		if err != nil {
			return nil, err
		}
		return contarMinisterios(membros), nil
	})
}

func contarMinisterios(membros []Membro) []MinisterioTotal {
	contagem := map[string]int{}
	for _, m := range membros {
		for _, nome := range m.Ministerios {
			nome = strings.TrimSpace(nome)
			if nome != "" {
				contagem[nome]++
			}
		}
	}

	out := make([]MinisterioTotal, 0, len(contagem))
	for nome, qtd := range contagem {
		out = append(out, MinisterioTotal{Ministerio: nome, Quantidade: qtd})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantidade != out[j].Quantidade {
			return out[i].Quantidade > out[j].Quantidade
		}
		return out[i].Ministerio < out[j].Ministerio
	})
	return out
}
