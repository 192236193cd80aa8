package formato

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestNome(t *testing.T) {
	cases := map[string]string{
		"MARIA DA SILVA":  "Maria da Silva",
		"joão de souza":   "João de Souza",
		"ana":             "Ana",
		"  pedro  santos": "  Pedro  Santos",
		"ÉRICA DOS ANJOS": "Érica Dos Anjos",
		"de":              "de",
	}
	for in, want := range cases {
		assert.Equal(t, want, Nome(in), in)
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "maria@igreja.org", Email("  Maria@Igreja.ORG "))
}

func TestTelefone(t *testing.T) {
	assert.Equal(t, "(11) 9 8765-4321", Telefone("11987654321"))
	assert.Equal(t, "(11) 8765-4321", Telefone("(11) 8765-4321"))
	assert.Equal(t, "12345", Telefone("123-45"))
	assert.Equal(t, "11987654321", LimparTelefone("(11) 9 8765-4321"))
}

func TestCEP(t *testing.T) {
	assert.Equal(t, "01310-100", CEP("01310100"))
	assert.Equal(t, "0131", CEP("01.31"))
	assert.Equal(t, "01310100", LimparCEP("01310-100"))
}

func TestDatas(t *testing.T) {
	d := civil.Date{Year: 2024, Month: 3, Day: 5}
	assert.Equal(t, "05/03/2024", DataBR(d))
	assert.Equal(t, "março de 2024", MesAno(d))
	assert.Equal(t, "", DataBR(civil.Date{}))
}
