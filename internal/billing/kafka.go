package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"verdant/internal/platform/config"
)

// Consumer reads payment events from Kafka and feeds the orchestrator.
// Records that fail to decode or process are logged and skipped; the
// consumer never wedges on a poison record.
type Consumer struct {
	client *kgo.Client
	orch   *Orchestrator
	topic  string
	logger *slog.Logger
}

// NewConsumer connects to the brokers and ensures the payment topic exists.
func NewConsumer(cfg config.KafkaConfig, orch *Orchestrator, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(context.Background(), client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Consumer{client: client, orch: orch, topic: cfg.Topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	_, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	return nil
}

// Run polls until the context is cancelled. Offsets commit only after a
// batch is fully handed to the orchestrator.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "payment consumer started", "topic", c.topic)

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic, "partition", partition, "error", err)
		})

		fetches.EachRecord(func(record *kgo.Record) {
			c.handle(ctx, record)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.ErrorContext(ctx, "kafka offset commit failed", "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, record *kgo.Record) {
	var evt PaymentEvent
	if err := json.Unmarshal(record.Value, &evt); err != nil {
		c.logger.ErrorContext(ctx, "undecodable payment record",
			"topic", record.Topic, "offset", record.Offset, "error", err)
		return
	}

	if err := c.orch.HandlePaymentCompleted(ctx, evt); err != nil {
		c.logger.ErrorContext(ctx, "payment event processing failed",
			"order_id", evt.OrderID, "error", err)
	}
}

// Close releases the Kafka client.
func (c *Consumer) Close() {
	c.client.Close()
}
