package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// ErrBufferFull is returned when the outbound buffer cannot take more events.
var ErrBufferFull = errors.New("event buffer full")

// messageWriter is the subset of *kafka.Writer used by the producer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher buffers events in memory and writes them from a single
// goroutine.
type KafkaPublisher struct {
	w      messageWriter
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

// NewKafkaWriter creates a writer for topic. Messages are keyed by order id
// so events of one order keep their order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
}

// NewKafkaPublisher starts a publisher writing through w with room for buf
// pending events.
func NewKafkaPublisher(w messageWriter, buf int, logger zerolog.Logger) *KafkaPublisher {
	if buf < 1 {
		buf = 1024
	}
	p := &KafkaPublisher{
		w:      w,
		logger: logger.With().Str("component", "kafka-publisher").Logger(),
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)

	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			p.logger.Error().
				Err(err).
				Str("key", string(m.Key)).
				Msg("failed to write event")
			continue
		}
		p.logger.Debug().Str("key", string(m.Key)).Msg("event written")
	}

	if err := p.w.Close(); err != nil {
		p.logger.Error().Err(err).Msg("failed to close kafka writer")
	}
}

// PublishOrderPlaced enqueues an OrderPlaced event keyed by order id.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) error {
	env, err := newEnvelope(EventOrderPlaced, event.OrderID, event)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode event envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events, flushes the buffer and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
	return nil
}
