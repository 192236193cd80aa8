package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const segredo = "0123456789abcdef0123456789abcdef"

func TestAccessToken(t *testing.T) {
	m := NewJWTManager(segredo, time.Minute)
	token, exp, err := m.GenerateAccessToken("uid-1", PapelLider)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.Subject)
	assert.Equal(t, []string{PapelLider}, claims.Roles)
}

func TestAccessTokenRejeitado(t *testing.T) {
	m := NewJWTManager(segredo, time.Minute)

	t.Run("outra assinatura", func(t *testing.T) {
		other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Minute)
		token, _, err := other.GenerateAccessToken("uid-1", PapelLider)
		require.NoError(t, err)
		_, err = m.ParseAndValidate(token)
		require.ErrorIs(t, err, ErrTokenInvalido)
	})

	t.Run("expirado", func(t *testing.T) {
		past := NewJWTManager(segredo, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := past.GenerateAccessToken("uid-1", PapelLider)
		require.NoError(t, err)
		_, err = m.ParseAndValidate(token)
		require.ErrorIs(t, err, ErrTokenInvalido)
	})

	t.Run("outra audiencia", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "uid-1",
				Audience:  jwt.ClaimStrings{"backoffice"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		})
		signed, err := token.SignedString([]byte(segredo))
		require.NoError(t, err)
		_, err = m.ParseAndValidate(signed)
		require.ErrorIs(t, err, ErrTokenInvalido)
	})
}

func TestSenha(t *testing.T) {
	hash, err := HashSenha("senha-forte")
	require.NoError(t, err)
	assert.True(t, ConferirSenha("senha-forte", hash))
	assert.False(t, ConferirSenha("outra", hash))
	assert.False(t, ConferirSenha("senha-forte", ""))
}

func TestTemPermissao(t *testing.T) {
	assert.True(t, TemPermissao([]string{PapelLider}, PapelVoluntario))
	assert.True(t, TemPermissao([]string{PapelLider}, PapelLider))
	assert.True(t, TemPermissao([]string{PapelVoluntario}, PapelVoluntario))
	assert.False(t, TemPermissao([]string{PapelVoluntario}, PapelLider))
	assert.False(t, TemPermissao(nil, PapelVoluntario))
}

type fakeRedis struct {
	data map[string]string
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	delete(f.data, key)
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestSessoes(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{}}
	s := NewSessoes(fake, time.Hour)

	raw, _, err := s.Abrir(ctx, "uid-9")
	require.NoError(t, err)
	assert.Contains(t, fake.data, "refresh:igreja:"+HashRefresh(raw))

	uid, err := s.Consumir(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "uid-9", uid)

	_, err = s.Consumir(ctx, raw)
	require.ErrorIs(t, err, ErrRefreshInvalido)

	raw2, _, err := s.Abrir(ctx, "uid-9")
	require.NoError(t, err)
	require.NoError(t, s.Encerrar(ctx, raw2))
	_, err = s.Consumir(ctx, raw2)
	require.ErrorIs(t, err, ErrRefreshInvalido)
}
