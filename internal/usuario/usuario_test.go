package usuario

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/docstore"
	httpmiddleware "github.com/gestaozabele/igreja/internal/http/middleware"
)

const segredo = "segredo-de-teste-com-mais-de-32-caracteres"

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	for _, k := range keys {
		delete(f.data, k)
	}
	return cmd
}

func novoServico(t *testing.T) (*Service, *docstore.Memory, *fakeRedis) {
	t.Helper()
	store := docstore.NewMemory()
	sessoes := &fakeRedis{data: map[string]string{}}
	svc := NewService(NewRepository(store), auth.NewJWTManager(segredo, 15*time.Minute), auth.NewSessoes(sessoes, time.Hour))
	return svc, store, sessoes
}

func TestCriarUsuario(t *testing.T) {
	svc, store, _ := novoServico(t)
	ctx := context.Background()

	perfil, err := svc.Criar(ctx, NovoUsuario{Email: " Lider@Igreja.org ", Senha: "senha-forte", Nome: " Paula ", Role: "LIDER"})
	require.NoError(t, err)
	assert.Equal(t, "lider@igreja.org", perfil.Email)
	assert.Equal(t, "Paula", perfil.Nome)
	assert.Equal(t, auth.PapelLider, perfil.Role)

	cred, err := store.Get(ctx, ColecaoCredenciais, perfil.UID)
	require.NoError(t, err)
	assert.Equal(t, "lider@igreja.org", cred.Data["email"])
	assert.NotEqual(t, "senha-forte", cred.Data["senhaHash"])

	salvo, err := svc.Perfil(ctx, perfil.UID)
	require.NoError(t, err)
	assert.Equal(t, perfil, salvo)

	_, err = svc.Criar(ctx, NovoUsuario{Email: "lider@igreja.org", Senha: "outra-senha", Nome: "Outra", Role: "voluntario"})
	require.ErrorIs(t, err, ErrEmailEmUso)
}

func TestCriarUsuarioValidacao(t *testing.T) {
	svc, _, _ := novoServico(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   NovoUsuario
		want error
	}{
		{"email inválido", NovoUsuario{Email: "x", Senha: "12345678", Nome: "A", Role: "lider"}, ErrValidacao},
		{"senha curta", NovoUsuario{Email: "a@b.com", Senha: "123", Nome: "A", Role: "lider"}, ErrValidacao},
		{"sem nome", NovoUsuario{Email: "a@b.com", Senha: "12345678", Nome: " ", Role: "lider"}, ErrValidacao},
		{"papel", NovoUsuario{Email: "a@b.com", Senha: "12345678", Nome: "A", Role: "pastor"}, ErrPapelInvalido},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Criar(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _, sessoes := novoServico(t)
	ctx := context.Background()
	perfil, err := svc.Criar(ctx, NovoUsuario{Email: "vol@igreja.org", Senha: "senha-forte", Nome: "Vó", Role: "voluntario"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "vol@igreja.org", "errada")
	require.ErrorIs(t, err, ErrCredenciaisInvalidas)
	_, err = svc.Login(ctx, "ninguem@igreja.org", "senha-forte")
	require.ErrorIs(t, err, ErrCredenciaisInvalidas)

	sessao, err := svc.Login(ctx, "VOL@igreja.org", "senha-forte")
	require.NoError(t, err)
	assert.Equal(t, perfil, sessao.Perfil)

	claims, err := svc.JWT().ParseAndValidate(sessao.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, perfil.UID, claims.Subject)
	assert.Equal(t, []string{auth.PapelVoluntario}, claims.Roles)

	nova, err := svc.Refresh(ctx, sessao.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sessao.RefreshToken, nova.RefreshToken)

	_, err = svc.Refresh(ctx, sessao.RefreshToken)
	require.ErrorIs(t, err, auth.ErrRefreshInvalido)

	require.NoError(t, svc.Logout(ctx, nova.RefreshToken))
	assert.Empty(t, sessoes.data)
	_, err = svc.Refresh(ctx, nova.RefreshToken)
	require.ErrorIs(t, err, auth.ErrRefreshInvalido)
}

func TestListarOrdenaPorNome(t *testing.T) {
	svc, store, _ := novoServico(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, ColecaoUsuarios, "u2", map[string]any{"email": "b@x.com", "nome": "bruno", "role": "lider"}))
	require.NoError(t, store.Set(ctx, ColecaoUsuarios, "u1", map[string]any{"email": "a@x.com", "nome": "Ana", "role": "voluntario"}))

	perfis, err := svc.Listar(ctx)
	require.NoError(t, err)
	require.Len(t, perfis, 2)
	assert.Equal(t, "u1", perfis[0].UID)
	assert.Equal(t, "Ana", perfis[0].Nome)
	assert.Equal(t, "u2", perfis[1].UID)
}

func novoRouter(svc *Service) http.Handler {
	h := NewHandler(svc, true)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Auth(svc.JWT()))
		h.RegisterRoutes(r)
	})
	return r
}

func corpo(v any) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func refreshDe(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookie {
			return c
		}
	}
	return nil
}

func TestAuthHandlers(t *testing.T) {
	svc, _, _ := novoServico(t)
	ctx := context.Background()
	_, err := svc.Criar(ctx, NovoUsuario{Email: "lider@igreja.org", Senha: "senha-forte", Nome: "Líder", Role: "lider"})
	require.NoError(t, err)
	h := novoRouter(svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", corpo(map[string]string{"email": "lider@igreja.org", "senha": "nao"})))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", corpo(map[string]string{"email": "lider@igreja.org", "senha": "senha-forte"})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := refreshDe(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/auth", cookie.Path)

	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
			User        Perfil `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Data.AccessToken)
	bearer := "Bearer " + login.Data.AccessToken

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"lider@igreja.org"`)

	req = httptest.NewRequest(http.MethodPost, "/usuarios", corpo(NovoUsuario{Email: "vol@igreja.org", Senha: "senha-forte", Nome: "Vol", Role: "voluntario"}))
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/usuarios", corpo(NovoUsuario{Email: "vol@igreja.org", Senha: "senha-forte", Nome: "Vol", Role: "voluntario"}))
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMAIL_EM_USO")

	req = httptest.NewRequest(http.MethodGet, "/usuarios", nil)
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	novo := refreshDe(rec)
	require.NotNil(t, novo)

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(novo)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	limpo := refreshDe(rec)
	require.NotNil(t, limpo)
	assert.Equal(t, -1, limpo.MaxAge)
}

func TestUsuariosExigeLider(t *testing.T) {
	svc, _, _ := novoServico(t)
	h := novoRouter(svc)

	token, _, err := svc.JWT().GenerateAccessToken("uid-vol", auth.PapelVoluntario)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
