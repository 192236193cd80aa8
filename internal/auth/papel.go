package auth

import "strings"

const (
	PapelLider      = "lider"
	PapelVoluntario = "voluntario"
)

// PapelValido aceita apenas os papéis conhecidos.
func PapelValido(papel string) bool {
	return papel == PapelLider || papel == PapelVoluntario
}

// TemPermissao: líder acessa tudo; os demais só o próprio papel.
func TemPermissao(papeis []string, exigido string) bool {
	for _, p := range papeis {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == PapelLider || p == exigido {
			return true
		}
	}
	return false
}
