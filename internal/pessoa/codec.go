package pessoa

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/mitchellh/mapstructure"

	"github.com/gestaozabele/igreja/internal/docstore"
)

var civilDateType = reflect.TypeOf(civil.Date{})

// civilDateHook converte datas gravadas como texto (YYYY-MM-DD ou ISO completo)
// ou como timestamp do store em civil.Date.
func civilDateHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != civilDateType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return civil.Date{}, nil
		}
		if len(v) > 10 {
			v = v[:10]
		}
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("data %q: %w", v, err)
		}
		return d, nil
	case time.Time:
		return civil.DateOf(v), nil
	case *time.Time:
		if v == nil {
			return civil.Date{}, nil
		}
		return civil.DateOf(*v), nil
	}
	return data, nil
}

type documento interface {
	base() *Pessoa
}

func decodeDocumento(doc docstore.Document, tipo Tipo, out documento) error {
	nome, _ := doc.Data["nome"].(string)
	if strings.TrimSpace(nome) == "" {
		return fmt.Errorf("%w: %s/%s sem nome", ErrDocumentoInvalido, tipo.Colecao(), doc.ID)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: civilDateHook,
		TagName:    "json",
		Squash:     true,
		Result:     out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(doc.Data); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrDocumentoInvalido, tipo.Colecao(), doc.ID, err)
	}

	p := out.base()
	p.ID = doc.ID
	p.Tipo = tipo
	if p.Presencas == nil {
		p.Presencas = []string{}
	}
	p.UltimaPresenca = dataOuNil(p.UltimaPresenca)
	return nil
}

func decodeMembro(doc docstore.Document) (Membro, error) {
	var m Membro
	if err := decodeDocumento(doc, TipoMembro, &m); err != nil {
		return Membro{}, err
	}
	if m.Ministerios == nil {
		m.Ministerios = []string{}
	}
	m.DataMembresia = dataOuNil(m.DataMembresia)
	return m, nil
}

func decodeVisitante(doc docstore.Document) (Visitante, error) {
	var v Visitante
	if err := decodeDocumento(doc, TipoVisitante, &v); err != nil {
		return Visitante{}, err
	}
	if v.Historico == nil {
		v.Historico = []Visita{}
	}
	return v, nil
}

func dataOuNil(d *civil.Date) *civil.Date {
	if d == nil || !d.IsValid() {
		return nil
	}
	return d
}

func textoData(d *civil.Date) any {
	if d == nil || !d.IsValid() {
		return nil
	}
	return d.String()
}

func camposPessoa(p Pessoa) map[string]any {
	presencas := p.Presencas
	if presencas == nil {
		presencas = []string{}
	}
	fields := map[string]any{
		"nome":           p.Nome,
		"email":          p.Email,
		"telefone":       p.Telefone,
		"dataNascimento": p.DataNascimento.String(),
		"foto":           p.Foto,
		"presencas":      presencas,
		"observacoes":    p.Observacoes,
	}
	if p.UltimaPresenca != nil {
		fields["ultimaPresenca"] = p.UltimaPresenca.String()
	}
	return fields
}

func camposEndereco(e Endereco) map[string]any {
	return map[string]any{
		"cep":         e.CEP,
		"logradouro":  e.Logradouro,
		"numero":      e.Numero,
		"complemento": e.Complemento,
		"bairro":      e.Bairro,
		"cidade":      e.Cidade,
		"uf":          e.UF,
	}
}

func encodeMembro(m Membro) map[string]any {
	fields := camposPessoa(m.Pessoa)
	ministerios := m.Ministerios
	if ministerios == nil {
		ministerios = []string{}
	}
	fields["ministerios"] = ministerios
	fields["dataMembresia"] = textoData(m.DataMembresia)
	fields["endereco"] = camposEndereco(m.Endereco)
	return fields
}

func encodeVisitante(v Visitante) map[string]any {
	fields := camposPessoa(v.Pessoa)
	historico := make([]any, 0, len(v.Historico))
	for _, h := range v.Historico {
		historico = append(historico, encodeVisita(h))
	}
	fields["primeiraVisita"] = v.PrimeiraVisita.String()
	fields["comoSoube"] = v.ComoSoube
	fields["historico"] = historico
	return fields
}

func encodeVisita(v Visita) map[string]any {
	return map[string]any{
		"data":        v.Data.String(),
		"observacoes": v.Observacoes,
	}
}
