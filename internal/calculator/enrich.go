package calculator

import (
	"context"
	"sync"
	"time"

	"forcecalc/internal/geocode"
	"forcecalc/internal/history"
	"forcecalc/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Geocoder resolves a 6-digit pincode.
type Geocoder interface {
	Lookup(ctx context.Context, pincode string) (geocode.Address, error)
}

// History receives completed records and late address patches.
type History interface {
	Add(ctx context.Context, rec history.Record) error
	PatchAddress(ctx context.Context, patch history.AddressPatch) (bool, error)
}

// Enricher resolves pincode operands in the background and patches the
// record each lookup was issued for. Lookup failures are logged and dropped.
type Enricher struct {
	geocoder Geocoder
	history  History
	logger   *zap.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// NewEnricher returns an Enricher. A zero timeout leaves lookups bounded only
// by the geocoder itself.
func NewEnricher(geocoder Geocoder, h History, logger *zap.Logger, timeout time.Duration) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		history:  h,
		logger:   logger,
		timeout:  timeout,
	}
}

// Enqueue starts the lookup for recordID and returns immediately. The lookup
// outlives ctx's cancellation but keeps its trace.
func (e *Enricher) Enqueue(ctx context.Context, recordID, pincode string) {
	ctx = context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.resolve(ctx, recordID, pincode)
	}()
}

// Wait blocks until every enqueued lookup has finished.
func (e *Enricher) Wait() {
	e.wg.Wait()
}

func (e *Enricher) resolve(ctx context.Context, recordID, pincode string) {
	ctx, span := tracer.Start(ctx, "calculator.enrich",
		trace.WithAttributes(
			attribute.String("history.record_id", recordID),
			attribute.String("geocode.pincode", pincode),
		),
	)
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	logger := e.logger
	if logger == nil {
		logger = observability.LoggerWithTrace(ctx)
	}

	addr, err := e.geocoder.Lookup(ctx, pincode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		enrichCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "lookup_failed")))
		logger.Warn("pincode lookup failed",
			zap.String("record_id", recordID),
			zap.String("pincode", pincode),
			zap.Error(err),
		)
		return
	}

	patched, err := e.history.PatchAddress(ctx, history.AddressPatch{
		RecordID:        recordID,
		Pincode:         pincode,
		AddressTaluk:    addr.Taluk,
		AddressDistrict: addr.District,
		AddressState:    addr.State,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "patch failed")
		enrichCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "patch_failed")))
		logger.Warn("address patch failed",
			zap.String("record_id", recordID),
			zap.Error(err),
		)
		return
	}

	outcome := "patched"
	if !patched {
		// Record cleared or already resolved.
		outcome = "skipped"
	}
	enrichCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetAttributes(attribute.Bool("history.patched", patched))
	span.SetStatus(codes.Ok, "")

	logger.Info("pincode resolved",
		zap.String("record_id", recordID),
		zap.String("pincode", pincode),
		zap.String("district", addr.District),
		zap.String("state", addr.State),
		zap.Bool("patched", patched),
	)
}
