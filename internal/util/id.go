package util

import "github.com/google/uuid"

// NewID gera identificador de documento (UUID v4 em texto).
func NewID() string {
	return uuid.NewString()
}
