package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// CORS libera as origens de ALLOW_ORIGINS. Entradas "*.dominio" aceitam
// qualquer subdomínio, mas não o domínio raiz.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	exatas := map[string]bool{}
	var sufixos []string
	for _, entry := range allowedOrigins {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case strings.HasPrefix(entry, "*."):
			sufixos = append(sufixos, entry[1:])
		default:
			exatas[strings.TrimRight(entry, "/")] = true
		}
	}

	permitida := func(origin string) bool {
		origin = strings.ToLower(origin)
		if origin == "" {
			return false
		}
		if exatas[origin] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		for _, suf := range sufixos {
			if strings.HasSuffix(host, suf) && host != suf[1:] {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); permitida(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
				h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				h.Set("Access-Control-Expose-Headers", "Content-Disposition")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
