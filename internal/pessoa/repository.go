package pessoa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/docstore"
)

const dbTimeout = 3 * time.Second

// Repository grava e lê pessoas no store de documentos.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) CreateMembro(ctx context.Context, m Membro) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return r.store.Create(ctx, ColecaoMembros, encodeMembro(m))
}

func (r *Repository) CreateVisitante(ctx context.Context, v Visitante) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return r.store.Create(ctx, ColecaoVisitantes, encodeVisitante(v))
}

func (r *Repository) get(ctx context.Context, collection, id string) (docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return docstore.Document{}, ErrNaoEncontrado
		}
		return docstore.Document{}, err
	}
	return doc, nil
}

func (r *Repository) GetMembro(ctx context.Context, id string) (Membro, error) {
	doc, err := r.get(ctx, ColecaoMembros, id)
	if err != nil {
		return Membro{}, err
	}
	return decodeMembro(doc)
}

func (r *Repository) GetVisitante(ctx context.Context, id string) (Visitante, error) {
	doc, err := r.get(ctx, ColecaoVisitantes, id)
	if err != nil {
		return Visitante{}, err
	}
	return decodeVisitante(doc)
}

// GetPessoa lê os campos comuns de qualquer um dos tipos.
func (r *Repository) GetPessoa(ctx context.Context, tipo Tipo, id string) (Pessoa, error) {
	if tipo == TipoVisitante {
		v, err := r.GetVisitante(ctx, id)
		return v.Pessoa, err
	}
	m, err := r.GetMembro(ctx, id)
	return m.Pessoa, err
}

func (r *Repository) list(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return r.store.List(ctx, collection, filters...)
}

func (r *Repository) ListMembros(ctx context.Context) ([]Membro, error) {
	return r.listMembros(ctx)
}

func (r *Repository) listMembros(ctx context.Context, filters ...docstore.Filter) ([]Membro, error) {
	docs, err := r.list(ctx, ColecaoMembros, filters...)
	if err != nil {
		return nil, err
	}
	membros := make([]Membro, 0, len(docs))
	for _, doc := range docs {
		m, err := decodeMembro(doc)
		if err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("pessoa: membro ignorado")
			continue
		}
		membros = append(membros, m)
	}
	return membros, nil
}

func (r *Repository) ListVisitantes(ctx context.Context) ([]Visitante, error) {
	docs, err := r.list(ctx, ColecaoVisitantes)
	if err != nil {
		return nil, err
	}
	visitantes := make([]Visitante, 0, len(docs))
	for _, doc := range docs {
		v, err := decodeVisitante(doc)
		if err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("pessoa: visitante ignorado")
			continue
		}
		visitantes = append(visitantes, v)
	}
	return visitantes, nil
}

// ListMembrosFiltrados filtra por ministério e status no store; a busca por nome
// é aplicada depois, em memória. O status usa janela de diasAtividade contados de hoje.
func (r *Repository) ListMembrosFiltrados(ctx context.Context, filtro FiltroMembros, hoje civil.Date) ([]Membro, error) {
	var filters []docstore.Filter
	if ministerio := strings.TrimSpace(filtro.Ministerio); ministerio != "" {
		filters = append(filters, docstore.Where("ministerios", docstore.OpArrayContains, ministerio))
	}

	limite := hoje.AddDays(-diasAtividade).String()
	switch strings.ToLower(strings.TrimSpace(filtro.Status)) {
	case "":
	case StatusAtivo:
		filters = append(filters, docstore.Where("ultimaPresenca", docstore.OpGte, limite))
	case StatusInativo:
		filters = append(filters, docstore.Where("ultimaPresenca", docstore.OpLt, limite))
	default:
		return nil, fmt.Errorf("%w: status %q", ErrValidacao, filtro.Status)
	}

	membros, err := r.listMembros(ctx, filters...)
	if err != nil {
		return nil, err
	}

	busca := strings.ToLower(strings.TrimSpace(filtro.Busca))
	if busca == "" {
		return membros, nil
	}
	filtrados := membros[:0]
	for _, m := range membros {
		if strings.Contains(strings.ToLower(m.Nome), busca) {
			filtrados = append(filtrados, m)
		}
	}
	return filtrados, nil
}

func (r *Repository) Count(ctx context.Context, collection string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return r.store.Count(ctx, collection)
}

// CountSince conta documentos cujo campo de data é >= threshold.
func (r *Repository) CountSince(ctx context.Context, collection, field string, threshold civil.Date) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return r.store.Count(ctx, collection, docstore.Where(field, docstore.OpGte, threshold.String()))
}

func (r *Repository) UpdateMembro(ctx context.Context, id string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := r.store.Update(ctx, ColecaoMembros, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNaoEncontrado
		}
		return err
	}
	return nil
}

func (r *Repository) DeleteMembro(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := r.store.Delete(ctx, ColecaoMembros, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNaoEncontrado
		}
		return err
	}
	return nil
}

// AddPresenca inclui o dia em presencas e atualiza ultimaPresenca na mesma escrita.
func (r *Repository) AddPresenca(ctx context.Context, tipo Tipo, id string, dia civil.Date) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	added, err := r.store.AddToSet(ctx, tipo.Colecao(), id, "presencas", dia.String(), map[string]any{
		"ultimaPresenca": dia.String(),
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return false, ErrNaoEncontrado
	}
	return added, err
}

func (r *Repository) AppendVisita(ctx context.Context, visitanteID string, visita Visita) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := r.store.Append(ctx, ColecaoVisitantes, visitanteID, "historico", encodeVisita(visita)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNaoEncontrado
		}
		return err
	}
	return nil
}
