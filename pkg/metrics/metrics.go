// Package metrics provides a minimal instrumentation surface with a no-op
// default and a Prometheus-backed implementation enabled at start-up.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncDBOpTotal(op string, success bool)
	ObserveDBOpSeconds(op string, success bool, seconds float64)
	IncOracleTier(oracle string, tier string)
	ObserveOracleSeconds(oracle string, tier string, seconds float64)
	AddModelTokens(provider, model, direction string, n int)
	ObserveModelSeconds(provider, model string, seconds float64)
}

type noopRecorder struct{}

func (n *noopRecorder) IncDBOpTotal(string, bool)                    {}
func (n *noopRecorder) ObserveDBOpSeconds(string, bool, float64)     {}
func (n *noopRecorder) IncOracleTier(string, string)                 {}
func (n *noopRecorder) ObserveOracleSeconds(string, string, float64) {}
func (n *noopRecorder) AddModelTokens(string, string, string, int)   {}
func (n *noopRecorder) ObserveModelSeconds(string, string, float64)  {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation. Passing nil restores
// the no-op recorder.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = &noopRecorder{}
	}
	recorder = r
}

// TimeOp times a store operation. Call the returned func with the outcome.
func TimeOp(op string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncDBOpTotal(op, success)
		Default().ObserveDBOpSeconds(op, success, dur)
	}
}

// TimeOracle times an oracle answer. Call the returned func with the tier
// that produced the answer.
func TimeOracle(oracle string) func(tier string) {
	start := time.Now()
	return func(tier string) {
		dur := time.Since(start).Seconds()
		Default().IncOracleTier(oracle, tier)
		Default().ObserveOracleSeconds(oracle, tier, dur)
	}
}
