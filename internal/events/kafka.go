package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes refresh events
type Producer struct {
	writer   messageWriter
	origin   string
	recorder *metrics.Recorder
}

// NewProducer creates a Kafka producer for topic. origin identifies this
// process in published events. recorder may be nil.
func NewProducer(brokers []string, topic, origin string, recorder *metrics.Recorder) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // Partition by key (source)
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			WriteTimeout: 10 * time.Second,
		},
		origin:   origin,
		recorder: recorder,
	}
}

// PublishRefresh announces that source has been reloaded
func (p *Producer) PublishRefresh(ctx context.Context, source string) (*RefreshEvent, error) {
	ev := NewRefreshEvent(source, p.origin)
	value, err := EncodeRefreshEvent(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(source),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	p.recorder.ObserveRefreshEvent("published")

	return ev, nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Handler reacts to a refresh event raised elsewhere
type Handler func(ctx context.Context, ev *RefreshEvent) error

// Consumer reads refresh events and hands foreign ones to a Handler
type Consumer struct {
	reader   messageReader
	origin   string
	recorder *metrics.Recorder
}

// NewConsumer creates a Kafka consumer. Events whose origin equals origin
// are committed without being handled.
func NewConsumer(brokers []string, topic, groupID, origin string, recorder *metrics.Recorder) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       1e6,
			CommitInterval: 0, // Manual commit
			StartOffset:    kafka.LastOffset,
		}),
		origin:   origin,
		recorder: recorder,
	}
}

// Run consumes until ctx is cancelled. Undecodable messages and handler
// failures are logged and committed so one bad event cannot wedge the
// group.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		c.dispatch(ctx, msg, handle)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warnf("Failed to commit refresh event: %v", err)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message, handle Handler) {
	ev, err := DecodeRefreshEvent(msg.Value)
	if err != nil {
		log.WithField("offset", msg.Offset).Warnf("Dropping undecodable refresh event: %v", err)
		return
	}
	if ev.Origin == c.origin {
		return
	}

	logger := log.WithFields(log.Fields{"event_id": ev.ID, "source": ev.Source, "origin": ev.Origin})
	if err := handle(ctx, ev); err != nil {
		logger.Errorf("Refresh event handler failed: %v", err)
		return
	}
	c.recorder.ObserveRefreshEvent("consumed")
	logger.Info("Handled refresh event")
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
