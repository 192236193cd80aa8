package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Provedores de store aceitos em STORE_PROVIDER.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port          int
	LogLevel      zerolog.Level
	StoreProvider string
	DBDSN         string
	Firestore     FirestoreConfig
	RedisURL      string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	JWTSecret     string
	AllowOrigins  []string
	// DevCookies libera o cookie de refresh sem Secure quando o front roda em localhost.
	DevCookies      bool
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Location        *time.Location
	ViaCEPURL       string
	Storage         StorageConfig
}

// FirestoreConfig identifica o projeto do Firestore.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// StorageConfig escolhe onde ficam as fotos dos membros.
type StorageConfig struct {
	Provider    string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, errors.New("LOG_LEVEL inválido")
	}
	cfg.LogLevel = level

	cfg.StoreProvider = strings.ToLower(strings.TrimSpace(getEnv("STORE_PROVIDER", StorePostgres)))
	switch cfg.StoreProvider {
	case StorePostgres:
		cfg.DBDSN = getEnv("DB_DSN", "")
		if cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN obrigatório")
		}
	case StoreFirestore:
		cfg.Firestore = FirestoreConfig{
			ProjectID:       strings.TrimSpace(getEnv("FIRESTORE_PROJECT_ID", "")),
			CredentialsFile: strings.TrimSpace(getEnv("FIRESTORE_CREDENTIALS_FILE", "")),
		}
		if cfg.Firestore.ProjectID == "" {
			return nil, errors.New("FIRESTORE_PROJECT_ID obrigatório")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE_PROVIDER %q não suportado", cfg.StoreProvider)
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		if strings.Contains(origin, "localhost") {
			cfg.DevCookies = true
		}
	}

	if cfg.RateLimitPublic, err = parseRateLimit("RATE_LIMIT_PUBLIC", RateLimitConfig{RequestsPerSecond: 10, Burst: 20}); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimit("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40}); err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(getEnv("TZ_IGREJA", "America/Sao_Paulo"))
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("TZ_IGREJA inválido: %w", err)
	}

	cfg.ViaCEPURL = strings.TrimRight(strings.TrimSpace(getEnv("VIACEP_URL", "https://viacep.com.br/ws")), "/")

	cfg.Storage = StorageConfig{
		Provider:    strings.ToLower(strings.TrimSpace(getEnv("STORAGE_PROVIDER", ""))),
		S3Endpoint:  strings.TrimSpace(getEnv("S3_ENDPOINT", "")),
		S3Region:    strings.TrimSpace(getEnv("S3_REGION", "auto")),
		S3Bucket:    strings.TrimSpace(getEnv("S3_BUCKET", "")),
		S3AccessKey: strings.TrimSpace(getEnv("S3_ACCESS_KEY", "")),
		S3SecretKey: strings.TrimSpace(getEnv("S3_SECRET_KEY", "")),
		S3PublicURL: strings.TrimSpace(getEnv("S3_PUBLIC_URL", "")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

// parseRateLimit lê "<req/s>,<burst>", por exemplo "10,20".
func parseRateLimit(key string, def RateLimitConfig) (RateLimitConfig, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	rpsRaw, burstRaw, ok := strings.Cut(val, ",")
	if !ok {
		return RateLimitConfig{}, errors.New(key + " deve ter o formato req/s,burst")
	}
	rps, err := strconv.ParseFloat(strings.TrimSpace(rpsRaw), 64)
	if err != nil || rps <= 0 {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	burst, err := strconv.Atoi(strings.TrimSpace(burstRaw))
	if err != nil || burst <= 0 {
		return RateLimitConfig{}, errors.New(key + " inválido")
	}
	return RateLimitConfig{RequestsPerSecond: rps, Burst: burst}, nil
}
