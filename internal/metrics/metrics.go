// Package metrics registra os contadores Prometheus da secretaria.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa os coletores expostos em /metrics. Um ponteiro nil é aceito
// em todos os métodos e não registra nada.
type Metrics struct {
	registry        *prometheus.Registry
	Cadastros       *prometheus.CounterVec
	Presencas       *prometheus.CounterVec
	Duplicatas      *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New cria um registro próprio com os coletores do processo e do runtime Go.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Cadastros: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igreja_pessoas_cadastradas_total",
			Help: "Pessoas cadastradas por tipo",
		}, []string{"tipo"}),
		Presencas: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igreja_presencas_total",
			Help: "Tentativas de check-in por resultado",
		}, []string{"resultado"}),
		Duplicatas: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igreja_duplicatas_sinalizadas_total",
			Help: "Cadastros interrompidos por possível duplicata",
		}, []string{"tipo"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "igreja_http_request_duration_seconds",
			Help:    "Duração das requisições HTTP por rota",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) PessoaCadastrada(tipo string) {
	if m == nil {
		return
	}
	m.Cadastros.WithLabelValues(tipo).Inc()
}

// Presenca conta um check-in; resultado é "registrada", "repetida" ou "erro".
func (m *Metrics) Presenca(resultado string) {
	if m == nil {
		return
	}
	m.Presencas.WithLabelValues(resultado).Inc()
}

func (m *Metrics) DuplicataSinalizada(tipo string) {
	if m == nil {
		return
	}
	m.Duplicatas.WithLabelValues(tipo).Inc()
}

// ObserveRequest registra a duração de uma requisição iniciada em start.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	if route == "" {
		route = "desconhecida"
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// Handler expõe o registro no formato texto do Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
