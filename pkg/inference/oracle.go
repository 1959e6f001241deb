// Package inference picks the relation label linking two entities from a
// closed vocabulary, using a language model when one is configured and a
// keyword heuristic otherwise.
package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/metrics"
)

const (
	TierLLM   = "llm"
	TierRules = "rules"

	defaultTimeout = 20 * time.Second
	temperature    = 0.3
	maxTokens      = 50
)

// ErrNoRelations is returned when the vocabulary is empty.
var ErrNoRelations = errors.New("relation vocabulary is empty")

// Inference is a relation label tagged with the tier that chose it.
type Inference struct {
	Relation string `json:"relation"`
	Tier     string `json:"tier"`
}

// Oracle chooses relations. A nil client sends every call to the rules.
type Oracle struct {
	client  ai.CompletionClient
	model   string
	timeout time.Duration
}

// NewOracleParams configures an Oracle. Model may be empty to use the
// client's default model; Timeout <= 0 means 20s.
type NewOracleParams struct {
	Client  ai.CompletionClient
	Model   string
	Timeout time.Duration
}

// NewOracle creates an Oracle from params.
func NewOracle(params NewOracleParams) *Oracle {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Oracle{
		client:  params.Client,
		model:   params.Model,
		timeout: timeout,
	}
}

// HasClient reports whether a language model is configured.
func (o *Oracle) HasClient() bool {
	return o.client != nil
}

// InferRelation returns the relation holding from a to c. The result is
// always a member of valid; the only error is ErrNoRelations.
func (o *Oracle) InferRelation(ctx context.Context, a, c string, valid []string) (Inference, error) {
	if len(valid) == 0 {
		return Inference{}, ErrNoRelations
	}

	done := metrics.TimeOracle("inference")

	if o.client != nil {
		rel, err := o.ask(ctx, a, c, valid)
		if err == nil {
			done(TierLLM)
			return Inference{Relation: rel, Tier: TierLLM}, nil
		}
		logger.Warn("[Inference][InferRelation] model answer rejected, using rules",
			"head", a, "tail", c, "err", err)
	}

	done(TierRules)
	return Inference{Relation: RuleRelation(a, c, valid), Tier: TierRules}, nil
}

func (o *Oracle) ask(ctx context.Context, a, c string, valid []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(ai.RelationSystemPrompt),
		ai.WithTemperature(temperature),
		ai.WithMaxTokens(maxTokens),
	}
	if o.model != "" {
		opts = append(opts, ai.WithModel(o.model))
	}

	prompt := fmt.Sprintf(ai.RelationPrompt, a, c, strings.Join(valid, "、"))
	raw, err := o.client.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return "", err
	}

	rel := strings.TrimSpace(raw)
	if !slices.Contains(valid, rel) {
		return "", fmt.Errorf("answer %q not in vocabulary", rel)
	}
	return rel, nil
}
