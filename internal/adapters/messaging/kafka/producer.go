package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"payment-gateway/internal/core/domain"
)

// Publisher is the Kafka implementation of the EventPublisher port.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPublisher creates a Kafka publisher and verifies the connection.
func NewPublisher(bootstrapServers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(bootstrapServers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to kafka: %w", err)
	}

	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// PublishPaymentProcessed announces a recorded payment. The event carries
// masked card data only.
func (p *Publisher) PublishPaymentProcessed(ctx context.Context, payment domain.Payment) error {
	message := map[string]interface{}{
		"payment_id":         payment.ID.String(),
		"status":             string(payment.Status),
		"masked_card_number": payment.MaskedCardNumber,
		"expiry_month":       payment.ExpiryMonth,
		"expiry_year":        payment.ExpiryYear,
		"currency":           payment.Currency,
		"amount":             payment.Amount,
		"created_at":         payment.CreatedAt.Format(time.RFC3339),
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(payment.ID.String()),
		Value: payload,
	}

	p.wg.Add(1)
	// Produce sends the record asynchronously.
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer p.wg.Done()
		if err != nil {
			p.logger.Error("failed to deliver payment event", "topic", r.Topic, "error", err)
		} else {
			p.logger.Debug("payment event delivered", "topic", r.Topic, "partition", r.Partition, "offset", r.Offset)
		}
	})

	return nil
}

// Close waits for in-flight deliveries and stops the client.
func (p *Publisher) Close() {
	p.logger.Info("waiting for kafka deliveries to finish...")
	p.wg.Wait()
	p.client.Close()
	p.logger.Info("kafka client stopped")
}
