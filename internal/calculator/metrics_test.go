package calculator

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestSessionAndEnricherRunWithoutInitMetrics(t *testing.T) {
	if err := registerInstruments(noop.Meter{}); err != nil {
		t.Fatalf("registerInstruments: %v", err)
	}
	t.Cleanup(func() {
		if err := InitMetrics(); err != nil {
			t.Errorf("InitMetrics: %v", err)
		}
	})

	geo := newGatedGeocoder(bangalore, nil)
	close(geo.release)
	f, enricher := newEnrichedFixture(t, geo, zap.NewNop())

	rec := f.tap(t, "5", "6", "0", "0", "0", "1", "+", "1", "=")
	enricher.Wait()

	if rec == nil || rec.Result != 42 {
		t.Fatalf("expected forced record 42, got %+v", rec)
	}

	stored, err := f.store.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !stored.HasAddress() {
		t.Fatal("expected address patched")
	}
}
