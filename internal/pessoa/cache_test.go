package pessoa

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/igreja/internal/docstore"
)

type memCache struct {
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func novoCache() *memCache {
	return &memCache{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memCache) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.data[key] = string(value.([]byte))
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func novoServicoComCache(t *testing.T) (*Service, *docstore.Memory, *memCache) {
	t.Helper()
	store := docstore.NewMemory()
	cache := novoCache()
	svc := NewService(NewRepository(store), Options{Cache: cache, Location: fuso, Now: relogio})
	return svc, store, cache
}

type agregados struct {
	resumo      Resumo
	porMes      []VisitantesNoMes
	ministerios []MinisterioTotal
}

func lerAgregados(t *testing.T, svc *Service) agregados {
	t.Helper()
	ctx := context.Background()
	var (
		a   agregados
		err error
	)
	a.resumo, err = svc.Resumo(ctx)
	require.NoError(t, err)
	a.porMes, err = svc.VisitantesPorMes(ctx)
	require.NoError(t, err)
	a.ministerios, err = svc.MembrosPorMinisterio(ctx)
	require.NoError(t, err)
	return a
}

func TestAgregadosServidosDoCache(t *testing.T) {
	svc, store, cache := novoServicoComCache(t)
	criarDoc(t, store, ColecaoVisitantes, map[string]any{"nome": "Ana", "primeiraVisita": "2024-03-01"})
	criarDoc(t, store, ColecaoMembros, map[string]any{"nome": "Caio", "ministerios": []string{"Louvor"}})

	antes := lerAgregados(t, svc)
	assert.Equal(t, 1, antes.resumo.TotalVisitantes)
	assert.Equal(t, []VisitantesNoMes{{Mes: "março de 2024", Referencia: "2024-03", Quantidade: 1}}, antes.porMes)
	assert.Equal(t, []MinisterioTotal{{Ministerio: "Louvor", Quantidade: 1}}, antes.ministerios)

	for _, key := range []string{"pessoa:resumo:2024-03", chaveVisitantesMes, chaveMinisterios} {
		assert.Contains(t, cache.data, key)
		assert.Equal(t, 60*time.Second, cache.ttl[key], key)
	}

	// gravação direta no store não passa pela fachada e não invalida o cache
	criarDoc(t, store, ColecaoVisitantes, map[string]any{"nome": "Bia", "primeiraVisita": "2024-03-02"})
	criarDoc(t, store, ColecaoMembros, map[string]any{"nome": "Davi", "ministerios": []string{"Louvor"}})

	assert.Equal(t, antes, lerAgregados(t, svc))
}

func TestEscritasInvalidamCache(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		escrita func(t *testing.T, svc *Service, membroID string)
	}{
		{
			name: "criar visitante",
			escrita: func(t *testing.T, svc *Service, _ string) {
				v := Visitante{
					Pessoa:    Pessoa{Nome: "Joana Prado", Telefone: "11 2222-3333", DataNascimento: civil.Date{Year: 1985, Month: time.July, Day: 4}},
					ComoSoube: "amigos",
				}
				_, _, err := svc.CriarVisitante(ctx, v, true)
				require.NoError(t, err)
			},
		},
		{
			name: "registrar presença",
			escrita: func(t *testing.T, svc *Service, membroID string) {
				require.NoError(t, svc.RegistrarPresenca(ctx, TipoMembro, membroID))
			},
		},
		{
			name: "excluir membro",
			escrita: func(t *testing.T, svc *Service, membroID string) {
				require.NoError(t, svc.ExcluirMembro(ctx, membroID))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, cache := novoServicoComCache(t)
			criarDoc(t, store, ColecaoVisitantes, map[string]any{"nome": "Ana", "primeiraVisita": "2024-02-10"})
			membroID := criarDoc(t, store, ColecaoMembros, map[string]any{"nome": "Caio", "ministerios": []string{"Louvor", "Diaconia"}})

			lerAgregados(t, svc)
			require.Len(t, cache.data, 3)

			tc.escrita(t, svc, membroID)
			assert.Empty(t, cache.data)

			semCache := NewService(NewRepository(store), Options{Location: fuso, Now: relogio})
			assert.Equal(t, lerAgregados(t, semCache), lerAgregados(t, svc))
		})
	}
}

func TestCacheIndisponivelUsaStore(t *testing.T) {
	svc, store, cache := novoServicoComCache(t)
	cache.err = errors.New("dial tcp: conexão recusada")
	criarDoc(t, store, ColecaoVisitantes, map[string]any{"nome": "Ana", "primeiraVisita": "2024-03-01"})

	r, err := svc.Resumo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Resumo{TotalVisitantes: 1, VisitantesMes: 1}, r)

	_, _, err = svc.CriarVisitante(context.Background(), Visitante{
		Pessoa:    Pessoa{Nome: "Bia Lima", Telefone: "11 4444-5555", DataNascimento: civil.Date{Year: 1999, Month: time.June, Day: 1}},
		ComoSoube: "amigos",
	}, true)
	require.NoError(t, err)
}
