package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Put(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody string
		gotType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up, err := NewS3(S3Config{
		Endpoint:     srv.URL,
		Region:       "auto",
		Bucket:       "fotos",
		AccessKey:    "AKIDEXAMPLE",
		SecretKey:    "segredo",
		PublicDomain: "https://cdn.igreja.test/",
	})
	require.NoError(t, err)
	up.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }

	url, err := up.Put(context.Background(), Objeto{Key: "membros/abc/foto perfil.jpg", ContentType: "image/jpeg", Body: []byte("jpeg")})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.igreja.test/membros/abc/foto%20perfil.jpg", url)
	assert.Equal(t, "/fotos/membros/abc/foto%20perfil.jpg", gotPath)
	assert.Equal(t, "jpeg", gotBody)
	assert.Equal(t, "image/jpeg", gotType)
	assert.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240310/auto/s3/aws4_request"))
	assert.Contains(t, gotAuth, "SignedHeaders=content-length;content-type;host;x-amz-content-sha256;x-amz-date")
}

func TestS3PutErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()

	up, err := NewS3(S3Config{Endpoint: srv.URL, Region: "auto", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)

	_, err = up.Put(context.Background(), Objeto{Key: "x.png", Body: []byte{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestS3ConfigIncompleta(t *testing.T) {
	_, err := NewS3(S3Config{Endpoint: "https://r2.example", Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_ACCESS_KEY, S3_REGION, S3_SECRET_KEY")

	_, err = NewS3(S3Config{Endpoint: "r2.example", Region: "auto", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.Error(t, err)
}

func TestDesativado(t *testing.T) {
	_, err := Desativado{}.Put(context.Background(), Objeto{Key: "k", Body: []byte{1}})
	require.ErrorIs(t, err, ErrNaoConfigurado)
}
