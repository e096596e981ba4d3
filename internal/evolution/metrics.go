package evolution

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("query-evolver/evolution")
	meter  = otel.Meter("query-evolver/evolution")
)

var (
	generationsTotal metric.Int64Counter
	persistFailures  metric.Int64Counter
	fitnessScores    metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		generationsTotal, err = meter.Int64Counter(
			"evolution_generations_total",
			metric.WithDescription("Completed generations, by selection decision"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		persistFailures, err = meter.Int64Counter(
			"evolution_persist_failures_total",
			metric.WithDescription("Generation snapshots that could not be written"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		fitnessScores, err = meter.Float64Histogram(
			"evolution_fitness",
			metric.WithDescription("Fitness of evaluated workflows"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordGeneration(ctx context.Context, accepted bool) {
	generationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("accepted", accepted)))
}

func recordFitness(ctx context.Context, variant string, score float64) {
	fitnessScores.Record(ctx, score, metric.WithAttributes(attribute.String("variant", variant)))
}

func recordPersistFailure(ctx context.Context) {
	persistFailures.Add(ctx, 1)
}
