package ai

import (
	"math"
	"sync"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/metrics"
)

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	Requests       int     `json:"requests"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// UsageMeter accumulates token usage of one provider client and mirrors every
// call into the process metrics recorder. The zero value is ready to use.
type UsageMeter struct {
	Provider string

	mu     sync.Mutex
	totals ModelMetrics
}

// Record adds one model call.
func (m *UsageMeter) Record(model string, input, output int, took time.Duration) {
	rec := metrics.Default()
	rec.AddModelTokens(m.Provider, model, "input", input)
	rec.AddModelTokens(m.Provider, model, "output", output)
	rec.ObserveModelSeconds(m.Provider, model, took.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals.Requests++
	m.totals.InputTokens += input
	m.totals.OutputTokens += output
	m.totals.TotalTokens += input + output
	m.totals.DurationMs += took.Milliseconds()
	if m.totals.DurationMs > 0 {
		tps := float64(m.totals.TotalTokens) * 1000 / float64(m.totals.DurationMs)
		m.totals.TokenPerSecond = float32(math.Round(tps*100) / 100)
	}
}

// GetMetrics returns the usage accumulated since start-up.
func (m *UsageMeter) GetMetrics() ModelMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals
}
