// Package worker relays audit events from the postgres outbox to Kafka.
// Kafka is the long-term home of the trail; the outbox guarantees no event
// is lost between the business transaction and the broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	outbox "admissio/pkg/platform/audit/store/postgres"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Worker drains the outbox and produces one Kafka record per event,
// keyed by action so per-action ordering is preserved within a partition.
type Worker struct {
	store    *outbox.Store
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	interval time.Duration
}

// New connects to the brokers and ensures the audit topic exists.
func New(brokers []string, topic string, store *outbox.Store, logger *slog.Logger) (*Worker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is fine; anything else surfaces on first produce.
		logger.Warn("audit topic creation", "topic", topic, "error", err)
	}

	return &Worker{
		store:    store,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultPollInterval,
	}, nil
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	entries, err := w.store.FetchUnpublished(ctx, defaultBatchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(e.Action),
			Value: e.Payload,
		})
	}

	results := w.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return w.store.MarkPublished(ctx, ids, time.Now())
}
