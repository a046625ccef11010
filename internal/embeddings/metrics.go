package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/clinicd/internal/embeddings"

// instrumentedProvider wraps a Provider with OTel metrics.
type instrumentedProvider struct {
	Provider

	providerName string
	duration     metric.Float64Histogram
	errors       metric.Int64Counter
}

func newInstrumentedProvider(p Provider, providerName string) Provider {
	if providerName == "" {
		providerName = "deterministic"
	}

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"clinicd.embedding.generation_duration_seconds",
		metric.WithDescription("Duration of embedding generation in seconds, labeled by provider and operation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return p
	}

	errCounter, err := meter.Int64Counter(
		"clinicd.embedding.errors_total",
		metric.WithDescription("Total embedding generation errors by provider and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return p
	}

	return &instrumentedProvider{
		Provider:     p,
		providerName: providerName,
		duration:     duration,
		errors:       errCounter,
	}
}

// EmbedDocuments generates embeddings for multiple texts, recording duration
// and errors.
func (p *instrumentedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	embeddings, err := p.Provider.EmbedDocuments(ctx, texts)
	p.record(ctx, "batch_embed", start, err)
	return embeddings, err
}

// EmbedQuery generates an embedding for a single query, recording duration
// and errors.
func (p *instrumentedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	embedding, err := p.Provider.EmbedQuery(ctx, text)
	p.record(ctx, "embed", start, err)
	return embedding, err
}

func (p *instrumentedProvider) record(ctx context.Context, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider", p.providerName),
		attribute.String("operation", operation),
	)
	p.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		p.errors.Add(ctx, 1, attrs)
	}
}
