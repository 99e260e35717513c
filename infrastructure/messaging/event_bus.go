package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"mindmesh-backend/application/ports"
	"mindmesh-backend/domain/history"
)

// EventBridgeBus publishes committed deltas to EventBridge for the realtime
// sync layer to fan out. This service is only the producer; the socket side
// consuming the bus is a separate deployment.
type EventBridgeBus struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewEventBridgeBus creates a new EventBridge publisher
func NewEventBridgeBus(client *eventbridge.Client, busName string, logger *zap.Logger) *EventBridgeBus {
	return &EventBridgeBus{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

type deltaEnvelope struct {
	MapID     string         `json:"mapId"`
	EventID   string         `json:"eventId"`
	Delta     *history.Delta `json:"delta"`
	Timestamp string         `json:"timestamp"`
}

// PublishDelta implements ports.EventBus
func (b *EventBridgeBus) PublishDelta(ctx context.Context, mapID, eventID string, delta *history.Delta) error {
	detail, err := json.Marshal(deltaEnvelope{
		MapID:     mapID,
		EventID:   eventID,
		Delta:     delta,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode delta envelope: %w", err)
	}

	out, err := b.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(b.busName),
			Source:       aws.String("mindmesh.history"),
			DetailType:   aws.String("delta.committed"),
			Detail:       aws.String(string(detail)),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish delta: %w", err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("event bus rejected %d entries", out.FailedEntryCount)
	}

	b.logger.Debug("Published delta",
		zap.String("mapID", mapID),
		zap.String("eventID", eventID),
		zap.Int("changes", len(delta.Changes)),
	)
	return nil
}

var _ ports.EventBus = (*EventBridgeBus)(nil)
