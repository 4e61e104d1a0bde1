package usecase

import (
	"context"
	"fmt"
)

// MetricsSummary represents aggregated inference insights.
type MetricsSummary struct {
	TotalRequests          int64   `json:"total_requests"`
	AverageMaskProbability float64 `json:"average_mask_probability"`
	AverageLatencyMillis   float64 `json:"average_latency_ms"`
	AverageBatchSize       float64 `json:"average_batch_size"`
}

// GetMetricsSummary aggregates inference metrics from persisted logs.
func (uc *PredictionUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if uc.repo == nil {
		return nil, fmt.Errorf("metrics unavailable: persistence is not configured")
	}

	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	return &MetricsSummary{
		TotalRequests:          aggregation.TotalCount,
		AverageMaskProbability: aggregation.AverageProbability,
		AverageLatencyMillis:   aggregation.AverageLatencyMs,
		AverageBatchSize:       aggregation.AverageBatchSize,
	}, nil
}
