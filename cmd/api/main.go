package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/cep"
	"github.com/gestaozabele/igreja/internal/config"
	"github.com/gestaozabele/igreja/internal/docstore"
	internalhttp "github.com/gestaozabele/igreja/internal/http"
	"github.com/gestaozabele/igreja/internal/metrics"
	"github.com/gestaozabele/igreja/internal/pessoa"
	"github.com/gestaozabele/igreja/internal/storage"
	"github.com/gestaozabele/igreja/internal/usuario"
)

// Coleções criadas no Postgres na subida.
var colecoes = []string{
	pessoa.ColecaoMembros,
	pessoa.ColecaoVisitantes,
	usuario.ColecaoUsuarios,
	usuario.ColecaoCredenciais,
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	ctx := context.Background()

	conn, err := docstore.Open(ctx, docstore.OpenConfig{
		Provider: cfg.StoreProvider,
		DSN:      cfg.DBDSN,
		Firestore: docstore.FirestoreConfig{
			ProjectID:       cfg.Firestore.ProjectID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		},
		Collections: colecoes,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer conn.Close()
	log.Info().Str("provider", cfg.StoreProvider).Msg("store conectado")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	uploader, err := novoUploader(cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	m := metrics.New()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	sessoes := auth.NewSessoes(redisClient, cfg.JWTRefreshTTL)

	pessoas := pessoa.NewService(pessoa.NewRepository(conn.Store), pessoa.Options{
		Cache:    redisClient,
		Uploader: uploader,
		Metrics:  m,
		Location: cfg.Location,
	})
	usuarios := usuario.NewService(usuario.NewRepository(conn.Store), jwtManager, sessoes)
	cepClient := cep.New(cep.Config{
		BaseURL: cfg.ViaCEPURL,
		Cache:   redisClient,
		Logger:  log.With().Str("component", "cep").Logger(),
	})

	handler := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Pessoas:  pessoas,
		Usuarios: usuarios,
		CEP:      cepClient,
		Metrics:  m,
		Checks: map[string]internalhttp.Check{
			"store": conn.Ping,
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func novoUploader(cfg config.StorageConfig) (storage.Uploader, error) {
	switch cfg.Provider {
	case "", "noop":
		log.Warn().Msg("storage desativado: upload de fotos indisponível")
		return storage.Desativado{}, nil
	case "s3", "r2", "cloudflare-r2":
		return storage.NewS3(storage.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicDomain: cfg.S3PublicURL,
		})
	}
	return nil, fmt.Errorf("provedor %s não suportado", cfg.Provider)
}
