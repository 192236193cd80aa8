package usuario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/docstore"
)

const dbTimeout = 3 * time.Second

// Repository lê e grava perfis e credenciais no store de documentos.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func decode(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: out})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}

func decodePerfil(doc docstore.Document) (Perfil, error) {
	var p Perfil
	if err := decode(doc.Data, &p); err != nil {
		return Perfil{}, fmt.Errorf("users/%s: %w", doc.ID, err)
	}
	p.UID = doc.ID
	return p, nil
}

// CredencialPorEmail procura a credencial do e-mail já normalizado.
func (r *Repository) CredencialPorEmail(ctx context.Context, email string) (credencial, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	docs, err := r.store.List(ctx, ColecaoCredenciais, docstore.Where("email", docstore.OpEq, email))
	if err != nil {
		return credencial{}, err
	}
	if len(docs) == 0 {
		return credencial{}, ErrNaoEncontrado
	}
	if len(docs) > 1 {
		log.Warn().Str("email", email).Int("total", len(docs)).Msg("usuario: email com mais de uma credencial")
	}

	var c credencial
	if err := decode(docs[0].Data, &c); err != nil {
		return credencial{}, fmt.Errorf("credenciais/%s: %w", docs[0].ID, err)
	}
	c.UID = docs[0].ID
	return c, nil
}

// Salvar grava a credencial e depois o perfil, ambos com o mesmo uid.
func (r *Repository) Salvar(ctx context.Context, c credencial, p Perfil) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := r.store.Set(ctx, ColecaoCredenciais, c.UID, map[string]any{
		"email":     c.Email,
		"senhaHash": c.SenhaHash,
	}); err != nil {
		return fmt.Errorf("gravar credencial: %w", err)
	}
	if err := r.store.Set(ctx, ColecaoUsuarios, p.UID, map[string]any{
		"uid":   p.UID,
		"email": p.Email,
		"nome":  p.Nome,
		"role":  p.Role,
	}); err != nil {
		return fmt.Errorf("gravar perfil: %w", err)
	}
	return nil
}

func (r *Repository) Perfil(ctx context.Context, uid string) (Perfil, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc, err := r.store.Get(ctx, ColecaoUsuarios, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Perfil{}, ErrNaoEncontrado
		}
		return Perfil{}, err
	}
	return decodePerfil(doc)
}

func (r *Repository) Listar(ctx context.Context) ([]Perfil, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	docs, err := r.store.List(ctx, ColecaoUsuarios)
	if err != nil {
		return nil, err
	}
	perfis := make([]Perfil, 0, len(docs))
	for _, doc := range docs {
		p, err := decodePerfil(doc)
		if err != nil {
			log.Warn().Err(err).Msg("usuario: perfil ignorado")
			continue
		}
		perfis = append(perfis, p)
	}
	return perfis, nil
}
