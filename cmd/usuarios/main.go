package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/igreja/internal/auth"
	"github.com/gestaozabele/igreja/internal/config"
	"github.com/gestaozabele/igreja/internal/docstore"
	"github.com/gestaozabele/igreja/internal/usuario"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}

	ctx := context.Background()

	conn, err := docstore.Open(ctx, docstore.OpenConfig{
		Provider: cfg.StoreProvider,
		DSN:      cfg.DBDSN,
		Firestore: docstore.FirestoreConfig{
			ProjectID:       cfg.Firestore.ProjectID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		},
		Collections: []string{usuario.ColecaoUsuarios, usuario.ColecaoCredenciais},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível abrir o store")
	}
	defer conn.Close()

	// cadastro e listagem não emitem tokens nem tocam no Redis.
	service := usuario.NewService(usuario.NewRepository(conn.Store), nil, nil)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "criar":
		err = runCriar(ctx, service, args)
	case "listar":
		err = runListar(ctx, service)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		conn.Close()
		log.Fatal().Err(err).Str("cmd", cmd).Msg("falha ao executar comando")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usuarios CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  usuarios criar --email lider@igreja.org --nome \"Pastor João\" --role lider [--senha segredo123]")
	fmt.Fprintln(os.Stderr, "  usuarios listar")
	fmt.Fprintln(os.Stderr, "sem --senha, a senha é lida de USUARIO_SENHA")
}

func runCriar(ctx context.Context, service *usuario.Service, args []string) error {
	fs := flag.NewFlagSet("criar", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		email = fs.String("email", "", "e-mail de login")
		nome  = fs.String("nome", "", "nome exibido")
		role  = fs.String("role", auth.PapelVoluntario, "papel: lider ou voluntario")
		senha = fs.String("senha", "", "senha inicial (mínimo 8 caracteres)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *senha == "" {
		*senha = os.Getenv("USUARIO_SENHA")
	}
	if *email == "" || *nome == "" || *senha == "" {
		return errors.New("email, nome e senha são obrigatórios")
	}

	perfil, err := service.Criar(ctx, usuario.NovoUsuario{
		Email: *email,
		Senha: *senha,
		Nome:  *nome,
		Role:  *role,
	})
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(perfil, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runListar(ctx context.Context, service *usuario.Service) error {
	perfis, err := service.Listar(ctx)
	if err != nil {
		return err
	}

	if len(perfis) == 0 {
		fmt.Println("nenhum usuário cadastrado")
		return nil
	}

	encoded, _ := json.MarshalIndent(perfis, "", "  ")
	fmt.Println(string(encoded))
	return nil
}
