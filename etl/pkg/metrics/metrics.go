package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orderlake_etl_build_info",
			Help: "Build information of the order lake ETL",
		},
		[]string{"version", "commit", "date"},
	)

	RecordsLoadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderlake_etl_records_loaded_total",
			Help: "Total number of raw records read from the source",
		},
	)

	RecordsInvalidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderlake_etl_records_invalid_total",
			Help: "Total number of records excluded from fact loading, by offending field",
		},
		[]string{"field"},
	)

	DimensionEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orderlake_etl_dimension_entities",
			Help: "Number of entities per dimension in the last run",
		},
		[]string{"dimension"},
	)

	FactsLinkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderlake_etl_facts_linked_total",
			Help: "Total number of fact rows produced",
		},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderlake_etl_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orderlake_etl_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs from first read to linked model",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
		},
	)

	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderlake_etl_sink_writes_total",
			Help: "Total number of run writes per sink",
		},
		[]string{"sink", "status"},
	)

	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderlake_etl_sink_write_duration_seconds",
			Help:    "Duration of run writes per sink",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~102s
		},
		[]string{"sink"},
	)
)

// Push sends every registered metric to a Prometheus Pushgateway under the
// given job name. Batch runs call it once before exiting.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(prometheus.DefaultGatherer)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
