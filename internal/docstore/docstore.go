// Package docstore expõe um repositório de documentos sem esquema, organizado em
// coleções, com implementações sobre Postgres (jsonb), Firestore e memória.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound é retornado quando o documento não existe na coleção.
	ErrNotFound = errors.New("documento não encontrado")
	// ErrFiltroInvalido indica operador ou campo não suportado.
	ErrFiltroInvalido = errors.New("filtro inválido")
)

// Op identifica o operador de um filtro.
type Op string

const (
	OpEq            Op = "=="
	OpGte           Op = ">="
	OpLt            Op = "<"
	OpArrayContains Op = "array-contains"
)

// Filter restringe uma listagem. Comparações de intervalo (>=, <) assumem campos
// textuais (datas YYYY-MM-DD); documentos sem o campo nunca satisfazem o filtro.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where monta um filtro.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Document é um registro bruto devolvido pelo store.
type Document struct {
	ID   string
	Data map[string]any
}

// Store define as operações usadas pelos repositórios de domínio.
type Store interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Count(ctx context.Context, collection string, filters ...Filter) (int, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	// AddToSet inclui value no array field se ainda não estiver presente, gravando
	// também extra na mesma escrita. Retorna false quando o valor já existia.
	AddToSet(ctx context.Context, collection, id, field, value string, extra map[string]any) (bool, error)
	// Append acrescenta value ao final do array field numa única escrita.
	Append(ctx context.Context, collection, id, field string, value any) error
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if f.Field == "" {
			return ErrFiltroInvalido
		}
		switch f.Op {
		case OpEq, OpGte, OpLt, OpArrayContains:
		default:
			return ErrFiltroInvalido
		}
	}
	return nil
}
