package pessoa

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gestaozabele/igreja/internal/storage"
)

// TamanhoMaximoFoto limita o upload de fotos a 5 MiB.
const TamanhoMaximoFoto = 5 << 20

// UploadFoto envia a foto do membro para membros/{id}/{arquivo} e grava a URL
// no campo foto.
func (s *Service) UploadFoto(ctx context.Context, membroID, arquivo, contentType string, conteudo []byte) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: tipo %q não é imagem", ErrFotoInvalida, contentType)
	}
	if len(conteudo) == 0 {
		return "", fmt.Errorf("%w: arquivo vazio", ErrFotoInvalida)
	}
	if len(conteudo) > TamanhoMaximoFoto {
		return "", fmt.Errorf("%w: arquivo maior que 5 MiB", ErrFotoInvalida)
	}
	nome := path.Base(strings.ReplaceAll(strings.TrimSpace(arquivo), "\\", "/"))
	if nome == "" || nome == "." || nome == "/" {
		return "", fmt.Errorf("%w: nome de arquivo ausente", ErrFotoInvalida)
	}

	if _, err := s.repo.GetMembro(ctx, membroID); err != nil {
		return "", err
	}

	url, err := s.uploader.Put(ctx, storage.Objeto{
		Key:         "membros/" + membroID + "/" + nome,
		ContentType: contentType,
		Body:        conteudo,
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateMembro(ctx, membroID, map[string]any{"foto": url}); err != nil {
		return "", err
	}
	return url, nil
}
