package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/igreja/internal/auth"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Minute)
	token, _, err := jwtManager.GenerateAccessToken("uid-1", auth.PapelVoluntario)
	require.NoError(t, err)

	var gotSubject string
	var gotRoles []string
	h := Auth(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = GetSubject(r.Context())
		gotRoles = GetRoles(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uid-1", gotSubject)
	assert.Equal(t, []string{auth.PapelVoluntario}, gotRoles)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer lixo"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		roles  []string
		papel  string
		status int
	}{
		{[]string{auth.PapelLider}, auth.PapelLider, http.StatusNoContent},
		{[]string{auth.PapelLider}, auth.PapelVoluntario, http.StatusNoContent},
		{[]string{auth.PapelVoluntario}, auth.PapelVoluntario, http.StatusNoContent},
		{[]string{auth.PapelVoluntario}, auth.PapelLider, http.StatusForbidden},
		{nil, auth.PapelVoluntario, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), "uid", tc.roles))
		rec := httptest.NewRecorder()
		RequireRole(tc.papel)(ok).ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%v -> %s", tc.roles, tc.papel)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://secretaria.igreja.org", "*.igreja.app"})(ok)

	cases := map[string]bool{
		"https://secretaria.igreja.org": true,
		"https://sede.igreja.app":       true,
		"https://igreja.app":            false,
		"https://evil.example":          false,
	}
	for origin, allowed := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if allowed {
			assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIPRateLimit(t *testing.T) {
	h := IPRateLimit(NewRateLimiter(0.0001, 2))(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"INTERNAL"`)
}
