package pessoa

import (
	"context"
	"strings"

	"github.com/gestaozabele/igreja/internal/formato"
)

const cabecalhoCSV = "Nome,Telefone,Data de Membresia,Ministérios"

// ExportarMembros gera o CSV dos membros filtrados e o nome sugerido do arquivo.
func (s *Service) ExportarMembros(ctx context.Context, filtro FiltroMembros) (string, []byte, error) {
	hoje := s.Hoje()
	membros, err := s.repo.ListMembrosFiltrados(ctx, filtro, hoje)
	if err != nil {
		return "", nil, err
	}
	return "membros_" + hoje.String() + ".csv", MembrosCSV(membros), nil
}

// MembrosCSV monta o arquivo com todas as células de dados entre aspas.
// Sem membros, o arquivo contém só o cabeçalho.
func MembrosCSV(membros []Membro) []byte {
	var b strings.Builder
	b.WriteString(cabecalhoCSV)
	for _, m := range membros {
		membresia := ""
		if m.DataMembresia != nil {
			membresia = formato.DataBR(*m.DataMembresia)
		}
		b.WriteByte('\n')
		escreverLinha(&b, m.Nome, m.Telefone, membresia, strings.Join(m.Ministerios, ", "))
	}
	return []byte(b.String())
}

func escreverLinha(b *strings.Builder, celulas ...string) {
	for i, c := range celulas {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(c, `"`, `""`))
		b.WriteByte('"')
	}
}
