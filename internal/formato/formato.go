// Package formato reúne transformações de texto usadas nos cadastros.
package formato

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.BrazilianPortuguese)

var meses = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// Nome coloca o nome em minúsculas e capitaliza palavras com mais de duas letras
// ("MARIA DA SILVA" -> "Maria da Silva").
func Nome(nome string) string {
	palavras := strings.Split(lower.String(nome), " ")
	for i, p := range palavras {
		if utf8.RuneCountInString(p) <= 2 {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		palavras[i] = string(unicode.ToUpper(r)) + p[size:]
	}
	return strings.Join(palavras, " ")
}

// Email normaliza endereço para comparação e gravação.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LimparTelefone mantém apenas dígitos.
func LimparTelefone(telefone string) string {
	return digitos(telefone)
}

// Telefone aplica máscara brasileira para 10 ou 11 dígitos.
func Telefone(telefone string) string {
	n := digitos(telefone)
	switch len(n) {
	case 11:
		return fmt.Sprintf("(%s) %s %s-%s", n[:2], n[2:3], n[3:7], n[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", n[:2], n[2:6], n[6:])
	default:
		return n
	}
}

// LimparCEP mantém apenas dígitos.
func LimparCEP(cep string) string {
	return digitos(cep)
}

// CEP formata 8 dígitos como 00000-000.
func CEP(cep string) string {
	n := digitos(cep)
	if len(n) == 8 {
		return n[:5] + "-" + n[5:]
	}
	return n
}

// DataBR formata data no padrão dd/mm/aaaa. Datas inválidas viram string vazia.
func DataBR(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// MesAno devolve rótulo por extenso, ex.: "março de 2024".
func MesAno(d civil.Date) string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}
	return fmt.Sprintf("%s de %d", meses[d.Month-1], d.Year)
}

func digitos(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
