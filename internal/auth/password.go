package auth

import (
	"github.com/alexedwards/argon2id"
)

var params = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// hashFicticio é comparado quando o e-mail não existe, para que a resposta
// leve o mesmo tempo de uma senha errada.
var hashFicticio, _ = argon2id.CreateHash("senha-inexistente", params)

// HashSenha gera hash Argon2id com os parâmetros embutidos.
func HashSenha(senha string) (string, error) {
	return argon2id.CreateHash(senha, params)
}

// ConferirSenha compara a senha com o hash. Hash vazio usa o fictício e
// sempre falha.
func ConferirSenha(senha, hash string) bool {
	if hash == "" {
		_, _ = argon2id.ComparePasswordAndHash(senha, hashFicticio)
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(senha, hash)
	return err == nil && ok
}
