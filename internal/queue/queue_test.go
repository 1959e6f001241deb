package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pinewilt/kgcurate/backend/pkg/common"

	"github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	keys       []string
	bodies     [][]byte
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp091.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(
	_ context.Context,
	exchange, key string,
	_, _ bool,
	msg amqp091.Publishing,
) error {
	f.keys = append(f.keys, exchange+"/"+key)
	f.bodies = append(f.bodies, msg.Body)
	return f.publishErr
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "graph:topic" {
		t.Fatalf("unexpected declarations %v", ch.declared)
	}

	tr := common.Triple{ID: 21, Head: "黑松", Relation: "属于", Tail: "松树"}
	p.Publish(context.Background(), Event{Type: EventTripleCreated, Triple: &tr, Entity: "黑松"})

	if len(ch.keys) != 1 || ch.keys[0] != "graph/triple.created" {
		t.Fatalf("unexpected routing %v", ch.keys)
	}
	var got Event
	if err := json.Unmarshal(ch.bodies[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.Triple == nil || *got.Triple != tr || got.At.IsZero() {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestPublish_FailureIsSwallowed(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := newPublisher(ch)
	if err != nil {
		t.Fatal(err)
	}
	p.Publish(context.Background(), Event{Type: EventEntityDeleted, Entity: "疫木"})
	if len(ch.keys) != 1 {
		t.Fatalf("expected one attempt, got %d", len(ch.keys))
	}
}

func TestNewPublisher_DeclareError(t *testing.T) {
	if _, err := newPublisher(&fakeChannel{declareErr: errors.New("no access")}); err == nil {
		t.Fatal("expected error")
	}
}
