package docstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

// StoreSuite roda o mesmo contrato contra qualquer backend. abrir devolve o
// store já vazio para cada teste.
type StoreSuite struct {
	suite.Suite
	abrir           func(t *testing.T) Store
	ordemDeInsercao bool
	concorrencia    int

	store Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.abrir(s.T())
}

func (s *StoreSuite) TestCreateGetAndList() {
	s.Run("keeps insertion order", func() {
		if !s.ordemDeInsercao {
			s.T().Skip("backend lista por id")
		}
		for _, nome := range []string{"Ana", "Bruno", "Carla"} {
			_, err := s.store.Create(s.ctx, "membros", map[string]any{"nome": nome})
			s.Require().NoError(err)
		}

		docs, err := s.store.List(s.ctx, "membros")
		s.Require().NoError(err)
		s.Require().Len(docs, 3)
		s.Equal("Ana", docs[0].Data["nome"])
		s.Equal("Carla", docs[2].Data["nome"])
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.Get(s.ctx, "membros", "nao-existe")
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("returned data is a copy", func() {
		id, err := s.store.Create(s.ctx, "visitantes", map[string]any{"nome": "Davi"})
		s.Require().NoError(err)

		doc, err := s.store.Get(s.ctx, "visitantes", id)
		s.Require().NoError(err)
		doc.Data["nome"] = "alterado"

		again, err := s.store.Get(s.ctx, "visitantes", id)
		s.Require().NoError(err)
		s.Equal("Davi", again.Data["nome"])
	})
}

func (s *StoreSuite) TestFilters() {
	_, _ = s.store.Create(s.ctx, "membros", map[string]any{"nome": "A", "ministerios": []string{"Louvor", "Infantil"}, "ultimaPresenca": "2024-03-10"})
	_, _ = s.store.Create(s.ctx, "membros", map[string]any{"nome": "B", "ministerios": []string{"Louvor"}, "ultimaPresenca": "2024-01-02"})
	_, _ = s.store.Create(s.ctx, "membros", map[string]any{"nome": "C"})

	s.Run("array-contains", func() {
		docs, err := s.store.List(s.ctx, "membros", Where("ministerios", OpArrayContains, "Infantil"))
		s.Require().NoError(err)
		s.Require().Len(docs, 1)
		s.Equal("A", docs[0].Data["nome"])
	})

	s.Run("range filters skip missing fields", func() {
		gte, err := s.store.Count(s.ctx, "membros", Where("ultimaPresenca", OpGte, "2024-02-01"))
		s.Require().NoError(err)
		s.Equal(1, gte)

		lt, err := s.store.Count(s.ctx, "membros", Where("ultimaPresenca", OpLt, "2024-02-01"))
		s.Require().NoError(err)
		s.Equal(1, lt)
	})

	s.Run("equality", func() {
		docs, err := s.store.List(s.ctx, "membros", Where("nome", OpEq, "C"))
		s.Require().NoError(err)
		s.Len(docs, 1)
	})

	s.Run("rejects unknown operator", func() {
		_, err := s.store.List(s.ctx, "membros", Where("nome", Op("!="), "C"))
		s.Require().ErrorIs(err, ErrFiltroInvalido)
	})
}

func (s *StoreSuite) TestUpdateAndDelete() {
	id, err := s.store.Create(s.ctx, "membros", map[string]any{"nome": "Ana", "email": "ana@x.org"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Update(s.ctx, "membros", id, map[string]any{"email": "nova@x.org"}))
	doc, err := s.store.Get(s.ctx, "membros", id)
	s.Require().NoError(err)
	s.Equal("nova@x.org", doc.Data["email"])
	s.Equal("Ana", doc.Data["nome"])

	s.Require().ErrorIs(s.store.Update(s.ctx, "membros", "x", map[string]any{"a": 1}), ErrNotFound)
	s.Require().NoError(s.store.Delete(s.ctx, "membros", id))
	s.Require().ErrorIs(s.store.Delete(s.ctx, "membros", id), ErrNotFound)
}

func (s *StoreSuite) TestAddToSet() {
	id, err := s.store.Create(s.ctx, "membros", map[string]any{"nome": "Ana"})
	s.Require().NoError(err)

	s.Run("adds once under concurrency", func() {
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			added int
		)
		for i := 0; i < s.concorrencia; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.store.AddToSet(s.ctx, "membros", id, "presencas", "2024-05-05", map[string]any{"ultimaPresenca": "2024-05-05"})
				s.NoError(err)
				if ok {
					mu.Lock()
					added++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		s.Equal(1, added)

		doc, err := s.store.Get(s.ctx, "membros", id)
		s.Require().NoError(err)
		s.Equal([]any{"2024-05-05"}, doc.Data["presencas"])
		s.Equal("2024-05-05", doc.Data["ultimaPresenca"])
	})

	s.Run("unknown document", func() {
		_, err := s.store.AddToSet(s.ctx, "membros", "x", "presencas", "2024-05-05", nil)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *StoreSuite) TestAppend() {
	id, err := s.store.Create(s.ctx, "visitantes", map[string]any{"nome": "Ana"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Append(s.ctx, "visitantes", id, "historico", map[string]any{"data": "2024-03-01"}))
	s.Require().NoError(s.store.Append(s.ctx, "visitantes", id, "historico", map[string]any{"data": "2024-03-01"}))

	doc, err := s.store.Get(s.ctx, "visitantes", id)
	s.Require().NoError(err)
	s.Len(doc.Data["historico"], 2)

	s.Require().ErrorIs(s.store.Append(s.ctx, "visitantes", "x", "historico", 1), ErrNotFound)
}
