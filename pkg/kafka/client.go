package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
)

// Well-known topic names.
const (
	TopicRoleSelected     = "onboarding.role_selected"
	TopicDetailsSubmitted = "onboarding.details_submitted"
	TopicNavigation       = "onboarding.navigation"
)

// Where a new consumer group starts reading.
const (
	FirstOffset = kafkago.FirstOffset
	LastOffset  = kafkago.LastOffset
)

// liveGroupRetention bounds how long the broker keeps a tail-only group
// after its reader goes away.
const liveGroupRetention = time.Hour

// Client wraps Kafka operations.
type Client struct {
	brokers []string
	writer  *kafkago.Writer
}

// NewClient returns a Client connected to the given brokers.
func NewClient(brokers []string) *Client {
	return &Client{
		brokers: brokers,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// EnsureTopics creates topics if they don't already exist (with retry).
func (c *Client) EnsureTopics(ctx context.Context, topics ...string) error {
	for attempt := 1; attempt <= 20; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			log.Warn().Msgf("kafka not ready, retrying in 3s... (%d/20)", attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		conn.Close()
		if err != nil {
			log.Debug().Err(err).Msg("topic creation returned (may already exist)")
		}
		log.Info().Strs("topics", topics).Msg("kafka topics ensured")
		return nil
	}
	return fmt.Errorf("kafka: could not connect after 20 attempts")
}

// Publish sends a JSON-serialised message to a topic. Messages with the same
// key land on the same partition, so per-user events stay ordered.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
}

func (c *Client) readerConfig(topic, groupID string, startOffset int64) kafkago.ReaderConfig {
	cfg := kafkago.ReaderConfig{
		Brokers:     c.brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	if startOffset == LastOffset {
		cfg.RetentionTime = liveGroupRetention
	}
	return cfg
}

// Subscribe starts a background goroutine that reads from a topic.
// startOffset applies only when groupID has no committed offset yet; pass
// LastOffset for readers that only care about new messages.
func (c *Client) Subscribe(ctx context.Context, topic, groupID string, startOffset int64, handler func([]byte) error) {
	r := kafkago.NewReader(c.readerConfig(topic, groupID, startOffset))

	go func() {
		defer r.Close()
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Str("topic", topic).Msg("kafka read error")
				time.Sleep(time.Second)
				continue
			}
			if err := handler(msg.Value); err != nil {
				log.Error().Err(err).Str("topic", topic).Msg("kafka handler error")
			}
		}
	}()
}

// Close flushes and closes the shared writer.
func (c *Client) Close() error { return c.writer.Close() }
