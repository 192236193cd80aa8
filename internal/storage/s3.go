package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// S3Config aponta para um bucket S3 ou R2.
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicDomain string
	HTTPClient   *http.Client
}

func (c S3Config) validar() error {
	var faltando []string
	for nome, valor := range map[string]string{
		"S3_ENDPOINT":   c.Endpoint,
		"S3_REGION":     c.Region,
		"S3_BUCKET":     c.Bucket,
		"S3_ACCESS_KEY": c.AccessKey,
		"S3_SECRET_KEY": c.SecretKey,
	} {
		if strings.TrimSpace(valor) == "" {
			faltando = append(faltando, nome)
		}
	}
	if len(faltando) > 0 {
		return fmt.Errorf("storage: configuração incompleta: %s", strings.Join(ordenado(faltando), ", "))
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("storage: S3_ENDPOINT precisa ser URL http(s)")
	}
	return nil
}

// S3 envia objetos com PUT assinado (SigV4).
type S3 struct {
	endpoint *url.URL
	bucket   string
	public   string
	signer   sigV4
	client   *http.Client
	now      func() time.Time
}

func NewS3(cfg S3Config) (*S3, error) {
	if err := cfg.validar(); err != nil {
		return nil, err
	}
	endpoint, _ := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &S3{
		endpoint: endpoint,
		bucket:   cfg.Bucket,
		public:   strings.TrimRight(strings.TrimSpace(cfg.PublicDomain), "/"),
		signer:   sigV4{accessKey: cfg.AccessKey, secretKey: cfg.SecretKey, region: cfg.Region, service: "s3"},
		client:   client,
		now:      time.Now,
	}, nil
}

func (s *S3) Put(ctx context.Context, obj Objeto) (string, error) {
	key := strings.TrimLeft(strings.TrimSpace(obj.Key), "/")
	if key == "" {
		return "", errors.New("storage: chave vazia")
	}
	if len(obj.Body) == 0 {
		return "", errors.New("storage: arquivo vazio")
	}

	objectPath := "/" + s.bucket + "/" + key
	target := *s.endpoint
	target.Path = strings.TrimRight(target.Path, "/") + objectPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(obj.Body))
	if err != nil {
		return "", err
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.ContentLength = int64(len(obj.Body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(obj.Body)))
	s.signer.assinar(req, obj.Body, s.now())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: envio falhou: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("storage: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if s.public != "" {
		return s.public + "/" + escaparCaminho(key), nil
	}
	return target.Scheme + "://" + target.Host + escaparCaminho(target.Path), nil
}
