package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	dbTotal       *prom.CounterVec
	dbSeconds     *prom.HistogramVec
	oracleTotal   *prom.CounterVec
	oracleSeconds *prom.HistogramVec
	modelTokens   *prom.CounterVec
	modelSeconds  *prom.HistogramVec
}

func (p *promRecorder) IncDBOpTotal(op string, success bool) {
	p.dbTotal.WithLabelValues(op, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveDBOpSeconds(op string, success bool, seconds float64) {
	p.dbSeconds.WithLabelValues(op, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncOracleTier(oracle string, tier string) {
	p.oracleTotal.WithLabelValues(oracle, tier).Inc()
}

func (p *promRecorder) ObserveOracleSeconds(oracle string, tier string, seconds float64) {
	p.oracleSeconds.WithLabelValues(oracle, tier).Observe(seconds)
}

func (p *promRecorder) AddModelTokens(provider, model, direction string, n int) {
	if n > 0 {
		p.modelTokens.WithLabelValues(provider, model, direction).Add(float64(n))
	}
}

func (p *promRecorder) ObserveModelSeconds(provider, model string, seconds float64) {
	p.modelSeconds.WithLabelValues(provider, model).Observe(seconds)
}

// NewPrometheus registers the kgcurate collectors on registry, installs them
// as the default recorder and returns an HTTP handler exposing the registry.
func NewPrometheus(registry *prom.Registry) http.Handler {
	p := &promRecorder{
		dbTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "kgcurate_db_ops_total",
			Help: "Total number of graph store operations",
		}, []string{"op", "success"}),
		dbSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "kgcurate_db_op_seconds",
			Help:    "Graph store operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		oracleTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "kgcurate_oracle_answers_total",
			Help: "Oracle answers by the fallback tier that produced them",
		}, []string{"oracle", "tier"}),
		oracleSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "kgcurate_oracle_seconds",
			Help:    "Oracle latency in seconds by answering tier",
			Buckets: prom.DefBuckets,
		}, []string{"oracle", "tier"}),
		modelTokens: prom.NewCounterVec(prom.CounterOpts{
			Name: "kgcurate_model_tokens_total",
			Help: "Tokens exchanged with model providers",
		}, []string{"provider", "model", "direction"}),
		modelSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "kgcurate_model_request_seconds",
			Help:    "Model provider request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"provider", "model"}),
	}

	registry.MustRegister(p.dbTotal, p.dbSeconds, p.oracleTotal, p.oracleSeconds, p.modelTokens, p.modelSeconds)
	SetRecorder(p)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ListenAndServe exposes a fresh Prometheus registry on addr in the background.
func ListenAndServe(addr string) {
	handler := NewPrometheus(prom.NewRegistry())
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	go func() { _ = http.ListenAndServe(addr, mux) }()
}
