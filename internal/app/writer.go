package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/observability"
	"github.com/bft-labs/mongoship/internal/ports"
	"github.com/bft-labs/mongoship/internal/sanitize"
)

// BatchDecoder turns chunk bytes into a batch.
type BatchDecoder interface {
	DecodeAll(chunk []byte) (*domain.Batch, error)
}

// CollectionResolver maps a tag to a collection handle.
type CollectionResolver interface {
	Resolve(ctx context.Context, tag string) (ports.Collection, error)
	Cached() []string
}

// Writer flushes chunks into their destination collections.
type Writer struct {
	decoder  BatchDecoder
	resolver CollectionResolver
	logger   ports.Logger
	metrics  *observability.Metrics
}

// NewWriter creates a writer.
func NewWriter(decoder BatchDecoder, resolver CollectionResolver, logger ports.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{
		decoder:  decoder,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// Flush decodes a chunk and inserts its records into the collection for tag.
//
// When the insert is rejected because a record is not encodable, every
// record is sanitized and the insert is retried once on the same collection.
// Any other failure is returned as is.
func (w *Writer) Flush(ctx context.Context, tag string, chunk []byte) error {
	start := time.Now()
	defer func() {
		w.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}()

	batch, err := w.decoder.DecodeAll(chunk)
	if err != nil {
		w.failed(observability.ReasonMalformed)
		return err
	}
	if batch.Empty() {
		return nil
	}

	coll, err := w.resolver.Resolve(ctx, tag)
	if err != nil {
		w.failed(observability.ReasonResolve)
		return fmt.Errorf("resolve %q: %w", tag, err)
	}
	w.metrics.CachedCollections.Set(float64(len(w.resolver.Cached())))

	records := batch.Records()
	err = coll.InsertMany(ctx, records)
	if err == nil {
		w.inserted(coll.Name(), len(records))
		return nil
	}
	if !errors.Is(err, domain.ErrEncoding) {
		w.failed(insertReason(err))
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}

	w.logger.Warn("records not encodable, retrying sanitized",
		ports.String("collection", coll.Name()),
		ports.Int("records", len(records)),
		ports.Err(err),
	)
	w.metrics.SanitizeRetries.WithLabelValues(coll.Name()).Inc()

	if err := coll.InsertMany(ctx, sanitize.Records(records)); err != nil {
		w.failed(observability.ReasonAfterRetry)
		return fmt.Errorf("insert sanitized records into %s: %w", coll.Name(), err)
	}
	w.inserted(coll.Name(), len(records))
	return nil
}

func (w *Writer) inserted(collection string, n int) {
	w.metrics.RecordsInserted.WithLabelValues(collection).Add(float64(n))
	w.logger.Debug("inserted records",
		ports.String("collection", collection),
		ports.Int("records", n),
	)
}

func (w *Writer) failed(reason string) {
	w.metrics.FlushErrors.WithLabelValues(reason).Inc()
}

func insertReason(err error) string {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return observability.ReasonUnavailable
	}
	return observability.ReasonInsert
}
