package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRefreshInvalido indica refresh ausente, expirado ou já usado.
var ErrRefreshInvalido = errors.New("refresh token inválido")

// NovoRefresh cria token aleatório e o hash que é persistido.
func NovoRefresh() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashRefresh(raw), nil
}

func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func chaveRefresh(hash string) string {
	return "refresh:" + Audiencia + ":" + hash
}

type sessionRedis interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Sessoes guarda refresh tokens no Redis; o valor é o uid do dono.
type Sessoes struct {
	redis sessionRedis
	ttl   time.Duration
}

func NewSessoes(client sessionRedis, ttl time.Duration) *Sessoes {
	return &Sessoes{redis: client, ttl: ttl}
}

// Abrir gera e grava um refresh para o uid.
func (s *Sessoes) Abrir(ctx context.Context, uid string) (string, time.Time, error) {
	raw, hash, err := NovoRefresh()
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.redis.Set(ctx, chaveRefresh(hash), uid, s.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return raw, time.Now().UTC().Add(s.ttl), nil
}

// Consumir valida e invalida o refresh num único comando, devolvendo o uid.
func (s *Sessoes) Consumir(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrRefreshInvalido
	}
	uid, err := s.redis.GetDel(ctx, chaveRefresh(HashRefresh(raw))).Result()
	if errors.Is(err, redis.Nil) || (err == nil && uid == "") {
		return "", ErrRefreshInvalido
	}
	if err != nil {
		return "", err
	}
	return uid, nil
}

// Encerrar remove o refresh, se existir.
func (s *Sessoes) Encerrar(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.redis.Del(ctx, chaveRefresh(HashRefresh(raw))).Err()
}
