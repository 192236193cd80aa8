package pessoa

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const porPaginaPadrao = 10

// Ordenacao escolhe campo e direção ("asc" ou "desc"). Campo vazio mantém a
// ordem do store.
type Ordenacao struct {
	Campo   string
	Direcao string
}

func (o Ordenacao) desc() bool {
	return strings.EqualFold(o.Direcao, "desc")
}

// Pagina é uma fatia da listagem com os totais para o paginador.
type Pagina[T any] struct {
	Itens        []T `json:"itens"`
	Total        int `json:"total"`
	Pagina       int `json:"pagina"`
	PorPagina    int `json:"porPagina"`
	TotalPaginas int `json:"totalPaginas"`
}

func paginar[T any](itens []T, pagina, porPagina int) Pagina[T] {
	if porPagina <= 0 {
		porPagina = porPaginaPadrao
	}
	if pagina <= 0 {
		pagina = 1
	}
	total := len(itens)
	inicio := (pagina - 1) * porPagina
	if inicio > total {
		inicio = total
	}
	fim := inicio + porPagina
	if fim > total {
		fim = total
	}
	return Pagina[T]{
		Itens:        itens[inicio:fim],
		Total:        total,
		Pagina:       pagina,
		PorPagina:    porPagina,
		TotalPaginas: (total + porPagina - 1) / porPagina,
	}
}

// novoComparador cria um collator pt-BR; cada ordenação usa o seu, pois o
// collator não é seguro para uso concorrente.
func novoComparador() *collate.Collator {
	return collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
}

// ListarMembros aplica filtros, ordena e pagina.
func (s *Service) ListarMembros(ctx context.Context, filtro FiltroMembros, ord Ordenacao, pagina, porPagina int) (Pagina[Membro], error) {
	membros, err := s.repo.ListMembrosFiltrados(ctx, filtro, s.Hoje())
	if err != nil {
		return Pagina[Membro]{}, err
	}
	if err := ordenarMembros(membros, ord); err != nil {
		return Pagina[Membro]{}, err
	}
	return paginar(membros, pagina, porPagina), nil
}

func ordenarMembros(membros []Membro, ord Ordenacao) error {
	cmp := novoComparador()
	var comparar func(a, b Membro) int
	switch ord.Campo {
	case "":
		return nil
	case "nome":
		comparar = func(a, b Membro) int { return cmp.CompareString(a.Nome, b.Nome) }
	case "telefone":
		comparar = func(a, b Membro) int { return cmp.CompareString(a.Telefone, b.Telefone) }
	case "ministerios":
		comparar = func(a, b Membro) int {
			return cmp.CompareString(strings.Join(a.Ministerios, ", "), strings.Join(b.Ministerios, ", "))
		}
	case "dataMembresia":
		// sem data fica no fim nas duas direções
		desc := ord.desc()
		sort.SliceStable(membros, func(i, j int) bool {
			a, b := membros[i].DataMembresia, membros[j].DataMembresia
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			case desc:
				return b.Before(*a)
			}
			return a.Before(*b)
		})
		return nil
	default:
		return fmt.Errorf("%w: ordenação por %q", ErrValidacao, ord.Campo)
	}

	desc := ord.desc()
	sort.SliceStable(membros, func(i, j int) bool {
		c := comparar(membros[i], membros[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return nil
}

// ListarVisitantes filtra por nome, ordena e pagina.
func (s *Service) ListarVisitantes(ctx context.Context, busca string, ord Ordenacao, pagina, porPagina int) (Pagina[Visitante], error) {
	visitantes, err := s.repo.ListVisitantes(ctx)
	if err != nil {
		return Pagina[Visitante]{}, err
	}

	if busca = strings.ToLower(strings.TrimSpace(busca)); busca != "" {
		filtrados := visitantes[:0]
		for _, v := range visitantes {
			if strings.Contains(strings.ToLower(v.Nome), busca) {
				filtrados = append(filtrados, v)
			}
		}
		visitantes = filtrados
	}

	if err := ordenarVisitantes(visitantes, ord); err != nil {
		return Pagina[Visitante]{}, err
	}
	return paginar(visitantes, pagina, porPagina), nil
}

func ordenarVisitantes(visitantes []Visitante, ord Ordenacao) error {
	cmp := novoComparador()
	var chave func(v Visitante) string
	switch ord.Campo {
	case "":
		return nil
	case "nome":
		chave = func(v Visitante) string { return v.Nome }
	case "email":
		chave = func(v Visitante) string { return v.Email }
	case "telefone":
		chave = func(v Visitante) string { return v.Telefone }
	case "comoSoube":
		chave = func(v Visitante) string { return v.ComoSoube }
	case "primeiraVisita":
		desc := ord.desc()
		sort.SliceStable(visitantes, func(i, j int) bool {
			a, b := visitantes[i].PrimeiraVisita, visitantes[j].PrimeiraVisita
			if desc {
				return b.Before(a)
			}
			return a.Before(b)
		})
		return nil
	default:
		return fmt.Errorf("%w: ordenação por %q", ErrValidacao, ord.Campo)
	}

	desc := ord.desc()
	sort.SliceStable(visitantes, func(i, j int) bool {
		c := cmp.CompareString(chave(visitantes[i]), chave(visitantes[j]))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return nil
}
