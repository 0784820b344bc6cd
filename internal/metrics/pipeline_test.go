package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterPipelineMetrics_Idempotent(t *testing.T) {
	RegisterPipelineMetrics()
	RegisterPipelineMetrics()

	IngestTotal.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(IngestTotal.WithLabelValues("ok")); got < 1 {
		t.Errorf("ingest_total{ok} = %v", got)
	}
}

func TestRegisterEmbeddingMetrics_Idempotent(t *testing.T) {
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()

	EmbeddingModelLoadsTotal.WithLabelValues("ok").Inc()
	if n := testutil.CollectAndCount(EmbeddingModelLoadsTotal); n != 1 {
		t.Errorf("expected one series, got %d", n)
	}
}
