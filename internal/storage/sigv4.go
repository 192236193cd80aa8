package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const algoritmo = "AWS4-HMAC-SHA256"

// sigV4 assina requisições no esquema AWS Signature Version 4.
type sigV4 struct {
	accessKey string
	secretKey string
	region    string
	service   string
}

func (s sigV4) assinar(req *http.Request, payload []byte, now time.Time) {
	now = now.UTC()
	stamp := now.Format("20060102T150405Z")
	dia := now.Format("20060102")
	hashPayload := hexSHA256(payload)

	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("X-Amz-Date", stamp)
	req.Header.Set("X-Amz-Content-Sha256", hashPayload)

	cabecalhos, assinados := s.cabecalhosCanonicos(req)
	canonica := strings.Join([]string{
		req.Method,
		escaparCaminho(req.URL.Path),
		req.URL.Query().Encode(),
		cabecalhos,
		assinados,
		hashPayload,
	}, "\n")

	escopo := strings.Join([]string{dia, s.region, s.service, "aws4_request"}, "/")
	paraAssinar := algoritmo + "\n" + stamp + "\n" + escopo + "\n" + hexSHA256([]byte(canonica))

	chave := []byte("AWS4" + s.secretKey)
	for _, parte := range []string{dia, s.region, s.service, "aws4_request"} {
		chave = hmacSHA256(chave, parte)
	}
	assinatura := hex.EncodeToString(hmacSHA256(chave, paraAssinar))

	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algoritmo, s.accessKey, escopo, assinados, assinatura))
}

func (sigV4) cabecalhosCanonicos(req *http.Request) (string, string) {
	valores := map[string]string{}
	for k, vs := range req.Header {
		nome := strings.ToLower(k)
		if nome == "authorization" || nome == "user-agent" {
			continue
		}
		limpos := make([]string, len(vs))
		for i, v := range vs {
			limpos[i] = strings.Join(strings.Fields(v), " ")
		}
		valores[nome] = strings.Join(limpos, ",")
	}

	nomes := make([]string, 0, len(valores))
	for nome := range valores {
		nomes = append(nomes, nome)
	}
	sort.Strings(nomes)

	var b strings.Builder
	for _, nome := range nomes {
		b.WriteString(nome)
		b.WriteByte(':')
		b.WriteString(valores[nome])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(nomes, ";")
}

// escaparCaminho aplica o URI-encode do SigV4 preservando as barras.
func escaparCaminho(p string) string {
	if p == "" {
		return "/"
	}
	const hexa = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~', c == '/':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexa[c>>4])
			b.WriteByte(hexa[c&0x0f])
		}
	}
	return b.String()
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func ordenado(v []string) []string {
	sort.Strings(v)
	return v
}
