package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/igreja/internal/db"
	"github.com/gestaozabele/igreja/internal/util"
)

const dbTimeout = 3 * time.Second

var tableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Postgres guarda cada coleção numa tabela (id, doc jsonb, criado_em).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres cria store sobre o pool informado.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate cria as tabelas das coleções informadas, se necessário.
func (p *Postgres) Migrate(ctx context.Context, collections ...string) error {
	for _, c := range collections {
		table, err := table(c)
		if err != nil {
			return err
		}
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id        TEXT PRIMARY KEY,
				doc       JSONB NOT NULL DEFAULT '{}'::jsonb,
				criado_em TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE INDEX IF NOT EXISTS %[1]s_doc_gin ON %[1]s USING GIN (doc jsonb_path_ops);
		`, table)
		if _, err := p.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := util.NewID()
	table, err := table(collection)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(orEmpty(data))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = p.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, table), id, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]any) error {
	table, err := table(collection)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(orEmpty(data))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = p.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`, table), id, payload)
	return err
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	table, err := table(collection)
	if err != nil {
		return Document{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err = p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table), id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return decodeRow(id, raw)
}

func (p *Postgres) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	table, err := table(collection)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT id, doc FROM %s%s ORDER BY criado_em, id`, table, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *Postgres) Count(ctx context.Context, collection string, filters ...Filter) (int, error) {
	table, err := table(collection)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int
	err = p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s%s`, table, where), args...).Scan(&total)
	return total, err
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	table, err := table(collection)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(orEmpty(fields))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET doc = doc || $2::jsonb WHERE id = $1`, table), id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	table, err := table(collection)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddToSet(ctx context.Context, collection, id, field, value string, extra map[string]any) (bool, error) {
	table, err := table(collection)
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(orEmpty(extra))
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// A condição no WHERE e a escrita acontecem no mesmo UPDATE (lock de linha),
	// então dois registros simultâneos nunca duplicam o valor.
	query := fmt.Sprintf(`
		UPDATE %s
		SET doc = jsonb_set(doc || $4::jsonb, ARRAY[$2::text], %s || jsonb_build_array($3::text))
		WHERE id = $1 AND NOT (%s @> jsonb_build_array($3::text))
	`, table, arrayExpr("$2"), arrayExpr("$2"))

	added := false
	err = db.WithTx(ctx, p.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, id, field, value, payload)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			added = true
			return nil
		}
		var exists bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return nil
	})
	return added, err
}

func (p *Postgres) Append(ctx context.Context, collection, id, field string, value any) error {
	table, err := table(collection)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET doc = jsonb_set(doc, ARRAY[$2::text], %s || jsonb_build_array($3::jsonb))
		WHERE id = $1
	`, table, arrayExpr("$2")), id, field, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// arrayExpr devolve o array do campo ou [] quando ausente/não-array.
func arrayExpr(param string) string {
	return fmt.Sprintf(`(CASE WHEN jsonb_typeof(doc -> %[1]s::text) = 'array' THEN doc -> %[1]s::text ELSE '[]'::jsonb END)`, param)
}

func buildWhere(filters []Filter) (string, []any, error) {
	if err := validateFilters(filters); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "", nil, nil
	}

	var (
		clauses []string
		args    []any
		idx     = 1
	)
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			payload, err := json.Marshal(map[string]any{f.Field: f.Value})
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", idx))
			args = append(args, payload)
			idx++
		case OpArrayContains:
			payload, err := json.Marshal(map[string]any{f.Field: []any{f.Value}})
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", idx))
			args = append(args, payload)
			idx++
		case OpGte, OpLt:
			value, ok := f.Value.(string)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s exige valor textual", ErrFiltroInvalido, f.Op)
			}
			op := ">="
			if f.Op == OpLt {
				op = "<"
			}
			clauses = append(clauses, fmt.Sprintf(`(doc ->> $%d::text) COLLATE "C" %s $%d::text`, idx, op, idx+1))
			args = append(args, f.Field, value)
			idx += 2
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func decodeRow(id string, raw []byte) (Document, error) {
	data := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return Document{}, fmt.Errorf("documento %s: %w", id, err)
		}
	}
	return Document{ID: id, Data: data}, nil
}

func table(collection string) (string, error) {
	if !tableName.MatchString(collection) {
		return "", fmt.Errorf("coleção inválida: %q", collection)
	}
	return collection, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
