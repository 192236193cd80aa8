package pessoa

import (
	"context"
	"sort"
	"strings"
)

// AdicionarVisita acrescenta uma visita ao histórico numa escrita atômica.
// Sem data, usa a de hoje.
func (s *Service) AdicionarVisita(ctx context.Context, visitanteID string, visita Visita) error {
	if _, err := s.repo.GetVisitante(ctx, visitanteID); err != nil {
		return err
	}
	if !visita.Data.IsValid() {
		visita.Data = s.Hoje()
	}
	visita.Observacoes = strings.TrimSpace(visita.Observacoes)
	return s.repo.AppendVisita(ctx, visitanteID, visita)
}

// HistoricoVisitas devolve uma visita por data, da mais recente para a mais
// antiga. Para datas repetidas vale a primeira gravada.
func (s *Service) HistoricoVisitas(ctx context.Context, visitanteID string) ([]Visita, error) {
	v, err := s.repo.GetVisitante(ctx, visitanteID)
	if err != nil {
		return nil, err
	}
	return historicoUnico(v.Historico), nil
}

func historicoUnico(historico []Visita) []Visita {
	vistas := make(map[string]struct{}, len(historico))
	out := make([]Visita, 0, len(historico))
	for _, h := range historico {
		chave := h.Data.String()
		if _, ok := vistas[chave]; ok {
			continue
		}
		vistas[chave] = struct{}{}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].Data.Before(out[i].Data)
	})
	return out
}
