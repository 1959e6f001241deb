package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// GraphExchange is the topic exchange graph-change events are published to.
const GraphExchange = "graph"

const (
	EventTripleCreated  = "triple.created"
	EventTripleUpdated  = "triple.updated"
	EventTripleDeleted  = "triple.deleted"
	EventEntityDeleted  = "entity.deleted"
	EventEntityRenamed  = "entity.renamed"
	EventRelationAdded  = "relation.added"
	publishTimeout      = 5 * time.Second
	defaultRabbitMQPort = "5672"
)

// Event describes one change to the graph. The routing key is Type.
type Event struct {
	Type     string         `json:"type"`
	Triple   *common.Triple `json:"triple,omitempty"`
	Entity   string         `json:"entity,omitempty"`
	NewName  string         `json:"new_name,omitempty"`
	Relation string         `json:"relation,omitempty"`
	Count    int64          `json:"count,omitempty"`
	At       time.Time      `json:"at"`
}

// Publisher sends graph events. Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPPublisher publishes events to GraphExchange.
type AMQPPublisher struct {
	mu sync.Mutex
	ch channel
}

// Init dials RabbitMQ from the RABBITMQ_* environment. Returns nil when no
// host is configured.
func Init() (*amqp091.Connection, error) {
	host := util.GetEnv("RABBITMQ_HOST")
	if host == "" {
		return nil, nil
	}
	user := util.GetEnvString("RABBITMQ_USER", "guest")
	pass := util.GetEnvString("RABBITMQ_PASSWORD", "guest")
	port := util.GetEnvString("RABBITMQ_PORT", defaultRabbitMQPort)

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// NewPublisher declares the graph exchange on ch.
func NewPublisher(ch *amqp091.Channel) (*AMQPPublisher, error) {
	return newPublisher(ch)
}

func newPublisher(ch channel) (*AMQPPublisher, error) {
	err := ch.ExchangeDeclare(
		GraphExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", GraphExchange, err)
	}
	return &AMQPPublisher{ch: ch}, nil
}

// Publish sends event and logs failures.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("[Queue] failed to encode event", "type", event.Type, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	// one publisher per channel at a time
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(
		ctx,
		GraphExchange,
		event.Type,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.At,
		},
	)
	if err != nil {
		logger.Warn("[Queue] failed to publish event", "type", event.Type, "err", err)
	}
}
