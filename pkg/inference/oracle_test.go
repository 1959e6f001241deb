package inference

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"
)

type fakeClient struct {
	answer string
	err    error
	delay  time.Duration
	calls  atomic.Int32
	opts   ai.GenerateOptions
	prompt string
}

func (f *fakeClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	f.calls.Add(1)
	f.prompt = prompt
	f.opts = ai.NewGenerateOptions(ai.GenerateOptions{}, opts...)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

var vocabulary = []string{"引起", "传播", "易感", "属于", "影响", "防治", "寄生", "媒介", "危害", "分布于"}

func TestInferRelation_LLMAnswerAccepted(t *testing.T) {
	client := &fakeClient{answer: "  易感\n"}
	o := NewOracle(NewOracleParams{Client: client, Model: "moonshot-v1-8k"})

	got, err := o.InferRelation(context.Background(), "黑松", "松材线虫", vocabulary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Inference{Relation: "易感", Tier: TierLLM}) {
		t.Fatalf("expected 易感 from llm, got %+v", got)
	}
	if client.calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", client.calls.Load())
	}
	if client.opts.Temperature != 0.3 || client.opts.MaxTokens != 50 || client.opts.Model != "moonshot-v1-8k" {
		t.Fatalf("unexpected request options %+v", client.opts)
	}
	if !strings.Contains(client.prompt, strings.Join(vocabulary, "、")) {
		t.Fatalf("expected vocabulary in prompt, got %q", client.prompt)
	}
}

func TestInferRelation_DecoratedAnswerFallsBack(t *testing.T) {
	for _, answer := range []string{"「属于」。", "\"属于\"", "```\n属于\n```", "属于。"} {
		o := NewOracle(NewOracleParams{Client: &fakeClient{answer: answer}})
		got, err := o.InferRelation(context.Background(), "湿地松", "松材线虫", vocabulary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != (Inference{Relation: "易感", Tier: TierRules}) {
			t.Fatalf("answer %q: expected rules fallback 易感, got %+v", answer, got)
		}
	}
}

func TestInferRelation_FallsBackWithoutRetry(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{name: "call fails", client: &fakeClient{err: errors.New("401 unauthorized")}},
		{name: "free text", client: &fakeClient{answer: "我认为是易感关系"}},
		{name: "hallucinated label", client: &fakeClient{answer: "相关"}},
		{name: "empty answer", client: &fakeClient{answer: ""}},
		{name: "timeout", client: &fakeClient{answer: "易感", delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOracle(NewOracleParams{Client: tt.client, Timeout: 20 * time.Millisecond})
			got, err := o.InferRelation(context.Background(), "松墨天牛", "松材线虫", vocabulary)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Tier != TierRules {
				t.Fatalf("expected rules tier, got %+v", got)
			}
			if !slices.Contains(vocabulary, got.Relation) {
				t.Fatalf("relation %q not in vocabulary", got.Relation)
			}
			if tt.client.calls.Load() != 1 {
				t.Fatalf("expected one call and no retry, got %d", tt.client.calls.Load())
			}
		})
	}
}

func TestInferRelation_AlwaysInVocabulary(t *testing.T) {
	failing := NewOracle(NewOracleParams{Client: &fakeClient{err: errors.New("quota exceeded")}})
	unconfigured := NewOracle(NewOracleParams{})

	entities := []string{"黑松", "松墨天牛", "温度", "化学防治", "", "pine", "松材线虫病", "湿度"}
	vocabs := [][]string{
		vocabulary,
		{"分布于"},
		{"属于", "易感"},
		{"相关", "无关"},
	}

	for _, o := range []*Oracle{failing, unconfigured} {
		for _, a := range entities {
			for _, c := range entities {
				for _, v := range vocabs {
					got, err := o.InferRelation(context.Background(), a, c, v)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if !slices.Contains(v, got.Relation) {
						t.Fatalf("%s/%s: relation %q not in %v", a, c, got.Relation, v)
					}
				}
			}
		}
	}
}

func TestInferRelation_EmptyVocabulary(t *testing.T) {
	client := &fakeClient{answer: "易感"}
	o := NewOracle(NewOracleParams{Client: client})
	if _, err := o.InferRelation(context.Background(), "a", "b", nil); !errors.Is(err, ErrNoRelations) {
		t.Fatalf("expected ErrNoRelations, got %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatal("expected no model call for empty vocabulary")
	}
}

func TestRuleRelation(t *testing.T) {
	tests := []struct {
		name  string
		a, c  string
		valid []string
		want  string
	}{
		{name: "tree and disease", a: "黑松", c: "松材线虫", valid: vocabulary, want: "易感"},
		{name: "tree and tree", a: "黑松", c: "松树", valid: vocabulary, want: "属于"},
		{name: "tree and disease without susceptible", a: "黑松", c: "松材线虫病", valid: []string{"属于", "危害"}, want: "属于"},
		{name: "tree and other", a: "黑松", c: "温度", valid: vocabulary, want: "引起"},
		{name: "tree keyword wins over insect", a: "松墨天牛", c: "松材线虫", valid: vocabulary, want: "易感"},
		{name: "insect", a: "天牛", c: "松材线虫", valid: vocabulary, want: "传播"},
		{name: "insect without transmits", a: "媒介昆虫", c: "x", valid: []string{"危害"}, want: "危害"},
		{name: "environment", a: "温度", c: "松材线虫", valid: vocabulary, want: "影响"},
		{name: "environment without affects", a: "气候", c: "x", valid: []string{"分布于", "引起"}, want: "分布于"},
		{name: "no group", a: "化学防治", c: "松墨天牛", valid: vocabulary, want: "引起"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RuleRelation(tt.a, tt.c, tt.valid); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
