// Package worker provides async classification of submitted transactions.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/classifier"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/observability"
)

// Worker consumes submitted transactions from the EventBus, classifies
// them, and publishes the resulting classifications and alerts.
type Worker struct {
	bus     domain.EventBus
	clf     *classifier.Classifier
	metrics *observability.Metrics

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a worker. The metrics handle may be nil.
func NewWorker(bus domain.EventBus, clf *classifier.Classifier, metrics *observability.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		clf:     clf,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the submitted-transaction topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicTransactionSubmitted, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started", "topic", domain.TopicTransactionSubmitted)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var tx domain.Transaction
	if err := json.Unmarshal(msg.Payload, &tx); err != nil {
		slog.Error("failed to parse transaction message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	classification, err := w.clf.Classify(ctx, &tx)
	if err != nil {
		slog.Error("classification failed",
			"tx_id", tx.ID,
			"error", err,
		)
		if w.metrics != nil {
			w.metrics.IncrClassificationError("worker")
		}
		return err
	}

	if w.metrics != nil {
		w.metrics.RecordClassification(
			string(classification.Result.Decision),
			string(tx.Type),
			classification.Result.TriggeredSafeguards,
		)
		w.metrics.RecordClassifyDuration("worker", time.Since(start))
	}

	payload, err := json.Marshal(classification)
	if err != nil {
		slog.Error("failed to marshal classification",
			"tx_id", tx.ID,
			"error", err,
		)
		return err
	}

	if err := w.bus.Publish(ctx, domain.TopicClassification, payload); err != nil {
		slog.Error("failed to publish classification",
			"tx_id", tx.ID,
			"error", err,
		)
	}

	if classification.ShouldAlert() {
		if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"tx_id", tx.ID,
				"error", err,
			)
		}
	}

	slog.Info("transaction classified",
		"tx_id", tx.ID,
		"decision", classification.Result.Decision,
		"total_score", classification.Result.TotalScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop unsubscribes and waits for in-flight handlers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
