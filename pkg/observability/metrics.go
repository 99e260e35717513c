package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes history-engine metrics to CloudWatch. Publishing is best
// effort: a failed put is logged and dropped, never surfaced to the request.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
	logger    *zap.Logger
}

// NewMetrics creates a metrics publisher. When disabled, every call is a no-op.
func NewMetrics(client *cloudwatch.Client, namespace string, enabled bool, logger *zap.Logger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		enabled:   enabled,
		logger:    logger,
	}
}

// RecordReplayLength records how many events a revert had to replay
func (m *Metrics) RecordReplayLength(ctx context.Context, mapID string, events int) {
	m.put(ctx, "ReplayEventCount", float64(events), types.StandardUnitCount, mapID)
}

// RecordDeltaSize records the number of changes in a committed delta
func (m *Metrics) RecordDeltaSize(ctx context.Context, mapID string, changes int) {
	m.put(ctx, "DeltaChangeCount", float64(changes), types.StandardUnitCount, mapID)
}

// RecordReplayDuration records how long state reconstruction took
func (m *Metrics) RecordReplayDuration(ctx context.Context, mapID string, d time.Duration) {
	m.put(ctx, "ReplayDuration", float64(d.Milliseconds()), types.StandardUnitMilliseconds, mapID)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit types.StandardUnit, mapID string) {
	if !m.enabled || m.client == nil {
		return
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Unit:       unit,
			Timestamp:  aws.Time(time.Now()),
			Dimensions: []types.Dimension{{
				Name:  aws.String("MapID"),
				Value: aws.String(mapID),
			}},
		}},
	})
	if err != nil {
		m.logger.Warn("Failed to publish metric", zap.String("metric", name), zap.Error(err))
	}
}
