package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const countAlias = "total"

// Firestore implementa Store sobre coleções do Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// FirestoreConfig descreve projeto e credenciais.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFirestore conecta ao projeto informado. Sem arquivo de credenciais, usa as
// credenciais padrão do ambiente (ou o emulador via FIRESTORE_EMULATOR_HOST).
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*Firestore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id obrigatório")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Close encerra o cliente.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, orEmpty(data))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, orEmpty(data))
	return err
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, mapFirestoreErr(err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (f *Firestore) List(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	q, err := f.query(collection, filters)
	if err != nil {
		return nil, err
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (f *Firestore) Count(ctx context.Context, collection string, filters ...Filter) (int, error) {
	q, err := f.query(collection, filters)
	if err != nil {
		return 0, err
	}

	result, err := q.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, err
	}
	value, ok := result[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, errors.New("firestore: contagem ausente na resposta")
	}
	return int(value.GetIntegerValue()), nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if len(fields) == 0 {
		_, err := f.Get(ctx, collection, id)
		return err
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, toUpdates(fields))
	return mapFirestoreErr(err)
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	return mapFirestoreErr(err)
}

func (f *Firestore) AddToSet(ctx context.Context, collection, id, field, value string, extra map[string]any) (bool, error) {
	ref := f.client.Collection(collection).Doc(id)
	added := false

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		added = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if arr, ok := snap.Data()[field].([]any); ok {
			for _, v := range arr {
				if s, ok := v.(string); ok && s == value {
					return nil
				}
			}
		}

		updates := toUpdates(extra)
		updates = append(updates, firestore.Update{Path: field, Value: firestore.ArrayUnion(value)})
		if err := tx.Update(ref, updates); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, mapFirestoreErr(err)
	}
	return added, nil
}

func (f *Firestore) Append(ctx context.Context, collection, id, field string, value any) error {
	ref := f.client.Collection(collection).Doc(id)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		arr, _ := snap.Data()[field].([]any)
		next := make([]any, 0, len(arr)+1)
		next = append(next, arr...)
		next = append(next, value)
		return tx.Update(ref, []firestore.Update{{Path: field, Value: next}})
	})
	return mapFirestoreErr(err)
}

func (f *Firestore) query(collection string, filters []Filter) (firestore.Query, error) {
	if err := validateFilters(filters); err != nil {
		return firestore.Query{}, err
	}
	q := f.client.Collection(collection).Query
	for _, filter := range filters {
		q = q.Where(filter.Field, string(filter.Op), filter.Value)
	}
	return q, nil
}

func toUpdates(fields map[string]any) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates
}

func mapFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}
