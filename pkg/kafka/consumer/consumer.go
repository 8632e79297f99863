// Package consumer wraps a kafka-go group reader with connection retries.
package consumer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	_defaultConnAttempts = 10
	_defaultConnTimeout  = time.Second

	_defaultMinBytes = 1
	_defaultMaxBytes = 10e6
	_defaultMaxWait  = 500 * time.Millisecond
)

type Consumer struct {
	connAttempts int
	connTimeout  time.Duration

	brokers []string
	groupID string
	topic   string

	Reader *kafka.Reader
}

func New(ctx context.Context, brokers []string, groupID, topic string, opts ...Option) (*Consumer, error) {
	c := &Consumer{
		connAttempts: _defaultConnAttempts,
		connTimeout:  _defaultConnTimeout,
		brokers:      brokers,
		groupID:      groupID,
		topic:        topic,
	}

	for _, opt := range opts {
		opt(c)
	}

	// MinBytes 1 keeps event delivery low-latency; cost events are small
	// and infrequent compared to a bulk pipeline.
	c.Reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       c.topic,
		MinBytes:    _defaultMinBytes,
		MaxBytes:    _defaultMaxBytes,
		MaxWait:     _defaultMaxWait,
		StartOffset: kafka.FirstOffset,
	})

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Consumer) connect(ctx context.Context) error {
	var err error

	for attempts := c.connAttempts; attempts > 0; attempts-- {
		err = c.ping(ctx)
		if err == nil {
			return nil
		}

		log.Printf("Kafka consumer is trying to connect, attempts left: %d", attempts)

		time.Sleep(c.connTimeout)
	}

	return fmt.Errorf("Kafka Consumer - connect - connAttempts == 0: %w", err)
}

func (c *Consumer) ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("Kafka Consumer - kafka.DialContext: %w", err)
	}
	defer conn.Close()

	_, err = conn.Brokers()
	if err != nil {
		return fmt.Errorf("Kafka Consumer - conn.Brokers: %w", err)
	}

	return nil
}

func (c *Consumer) Close() error {
	if c.Reader != nil {
		return c.Reader.Close()
	}

	return nil
}
