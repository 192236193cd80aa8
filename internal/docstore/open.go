package docstore

import (
	"context"
	"fmt"

	"github.com/gestaozabele/igreja/internal/db"
)

// OpenConfig escolhe e configura o backend.
type OpenConfig struct {
	Provider  string
	DSN       string
	Firestore FirestoreConfig
	// Collections são criadas no Postgres se ainda não existirem.
	Collections []string
}

// Conexao é um store aberto com seus ganchos de ciclo de vida.
type Conexao struct {
	Store Store
	Close func()
	Ping  func(context.Context) error
}

// Open conecta ao backend indicado por cfg.Provider ("postgres", "firestore" ou "memory").
func Open(ctx context.Context, cfg OpenConfig) (*Conexao, error) {
	switch cfg.Provider {
	case "", "postgres":
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		store := NewPostgres(pool)
		if err := store.Migrate(ctx, cfg.Collections...); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return &Conexao{Store: store, Close: pool.Close, Ping: pool.Ping}, nil
	case "firestore":
		store, err := NewFirestore(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		return &Conexao{
			Store: store,
			Close: func() { _ = store.Close() },
			Ping: func(ctx context.Context) error {
				_, err := store.Count(ctx, "users")
				return err
			},
		}, nil
	case "memory":
		return &Conexao{
			Store: NewMemory(),
			Close: func() {},
			Ping:  func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("store %q não suportado", cfg.Provider)
}
