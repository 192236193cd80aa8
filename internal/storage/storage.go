// Package storage guarda arquivos binários (fotos de membros) em buckets
// compatíveis com S3.
package storage

import (
	"context"
	"errors"
)

// ErrNaoConfigurado é devolvido quando nenhum bucket foi configurado.
var ErrNaoConfigurado = errors.New("storage: armazenamento de arquivos não configurado")

// Objeto é um arquivo pronto para envio.
type Objeto struct {
	Key         string
	ContentType string
	Body        []byte
}

// Uploader grava o objeto e devolve a URL pública.
type Uploader interface {
	Put(ctx context.Context, obj Objeto) (string, error)
}

// Desativado recusa uploads; usado quando STORAGE_PROVIDER não está definido.
type Desativado struct{}

func (Desativado) Put(context.Context, Objeto) (string, error) {
	return "", ErrNaoConfigurado
}
