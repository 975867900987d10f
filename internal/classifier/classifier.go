// Package classifier runs the full classification pipeline: validation,
// type gating, signal resolution and scoring.
package classifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/signals"
)

// EngineVersion tags every classification for downstream consumers.
const EngineVersion = "kestrel-1.0"

// Classifier turns transactions into classifications. Stateless between
// calls; safe for concurrent use.
type Classifier struct {
	engine   *scoring.Engine
	resolver *signals.Resolver
	tracer   trace.Tracer
}

// New creates a classifier from a scoring engine and signal resolver.
func New(engine *scoring.Engine, resolver *signals.Resolver) *Classifier {
	return &Classifier{
		engine:   engine,
		resolver: resolver,
		tracer:   otel.Tracer("kestrel/classifier"),
	}
}

// Classify validates and scores a single transaction. Validation
// failures and missing signals return an error; no partial verdict is
// ever produced.
func (c *Classifier) Classify(ctx context.Context, tx *domain.Transaction) (*domain.Classification, error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "classifier.Classify",
		trace.WithAttributes(
			attribute.String("tx.id", tx.ID),
			attribute.String("tx.type", string(tx.Type)),
		))
	defer span.End()

	if err := tx.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	classification := &domain.Classification{
		ID:        uuid.New().String(),
		TxID:      tx.ID,
		TxType:    tx.Type,
		Timestamp: time.Now().UTC(),
	}

	// Terminal bypass for low-risk transaction types. No signals run.
	gated, bypassed, err := c.engine.Gate(tx.Type)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if bypassed {
		classification.Result = gated
		c.finishMetadata(classification, span, start, start, time.Now())
		return classification, nil
	}

	contributions, err := c.resolver.Resolve(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	signalsDone := time.Now()

	result, err := c.engine.Score(contributions)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	classification.Result = result

	c.finishMetadata(classification, span, start, signalsDone, time.Now())
	return classification, nil
}

func (c *Classifier) finishMetadata(cl *domain.Classification, span trace.Span, start, signalsDone, end time.Time) {
	cl.Metadata = domain.ClassificationMetadata{
		TraceID:       span.SpanContext().TraceID().String(),
		SignalsMs:     signalsDone.Sub(start).Milliseconds(),
		DecisionMs:    end.Sub(signalsDone).Milliseconds(),
		TotalMs:       end.Sub(start).Milliseconds(),
		EngineVersion: EngineVersion,
	}
	span.SetAttributes(
		attribute.String("decision", string(cl.Result.Decision)),
		attribute.Float64("total_score", cl.Result.TotalScore),
	)
}
