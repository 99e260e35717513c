package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mindmesh-backend/application/ports"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// EventStore persists history events: one delta per item, ordered under its
// snapshot by zero-padded EventIndex. A GSI keyed on the event id supports
// resolving an event back to its snapshot.
type EventStore struct {
	client     *dynamodb.Client
	tableName  string
	eventIndex string
	logger     *zap.Logger
}

// NewEventStore creates a new EventStore
func NewEventStore(client *dynamodb.Client, tableName, eventIndex string, logger *zap.Logger) *EventStore {
	return &EventStore{
		client:     client,
		tableName:  tableName,
		eventIndex: eventIndex,
		logger:     logger,
	}
}

type eventItem struct {
	PK         string `dynamodbav:"PK"` // SNAP#<snapshot_id>
	SK         string `dynamodbav:"SK"` // EVENT#<index padded>
	EventID    string `dynamodbav:"EventID"`
	MapID      string `dynamodbav:"MapID"`
	SnapshotID string `dynamodbav:"SnapshotID"`
	EventIndex int    `dynamodbav:"EventIndex"`
	Delta      string `dynamodbav:"Delta"` // JSON-encoded delta
	UserID     string `dynamodbav:"UserID,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`

	GSI1PK string `dynamodbav:"GSI1PK"` // EVENTID#<event_id>
	GSI1SK string `dynamodbav:"GSI1SK"` // MAP#<map_id>
}

// newEventItem builds the storage record for an event. The GSI is keyed by
// event id and sorted by map, so an event lookup is scoped to its map.
func newEventItem(event *history.Event) (eventItem, error) {
	delta, err := json.Marshal(event.Delta)
	if err != nil {
		return eventItem{}, fmt.Errorf("failed to encode delta: %w", err)
	}

	return eventItem{
		PK:         "SNAP#" + event.SnapshotID,
		SK:         eventSK(event.EventIndex),
		EventID:    event.ID,
		MapID:      event.MapID,
		SnapshotID: event.SnapshotID,
		EventIndex: event.EventIndex,
		Delta:      string(delta),
		UserID:     event.UserID,
		CreatedAt:  event.CreatedAt.Format(time.RFC3339Nano),
		GSI1PK:     "EVENTID#" + event.ID,
		GSI1SK:     "MAP#" + event.MapID,
	}, nil
}

// Append implements ports.EventRepository. The write is conditional on the
// slot being empty, so two concurrent commits cannot claim the same index.
func (s *EventStore) Append(ctx context.Context, event *history.Event) error {
	record, err := newEventItem(event)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal event item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return pkgerrors.NewConflictError(
				fmt.Sprintf("event index %d already taken for snapshot %s", event.EventIndex, event.SnapshotID))
		}
		return fmt.Errorf("failed to append event %s: %w", event.ID, err)
	}

	s.logger.Debug("Appended history event",
		zap.String("eventID", event.ID),
		zap.String("snapshotID", event.SnapshotID),
		zap.Int("eventIndex", event.EventIndex),
	)
	return nil
}

// ListBySnapshot implements ports.EventRepository
func (s *EventStore) ListBySnapshot(ctx context.Context, snapshotID string) ([]history.Event, error) {
	keyCond := expression.Key("PK").Equal(expression.Value("SNAP#" + snapshotID)).
		And(expression.Key("SK").BeginsWith("EVENT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build event query: %w", err)
	}

	var events []history.Event
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &s.tableName,
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(true),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query events for snapshot %s: %w", snapshotID, err)
		}
		for _, raw := range out.Items {
			event, err := unmarshalEvent(raw)
			if err != nil {
				return nil, err
			}
			events = append(events, *event)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return events, nil
}

// FindByID implements ports.EventRepository. The sort-key condition scopes
// the lookup to the map, so an event id from another user's map is not found.
func (s *EventStore) FindByID(ctx context.Context, mapID, eventID string) (*history.Event, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value("EVENTID#" + eventID)).
		And(expression.Key("GSI1SK").Equal(expression.Value("MAP#" + mapID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build event lookup: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 &s.eventIndex,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up event %s: %w", eventID, err)
	}
	if len(out.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("event")
	}

	return unmarshalEvent(out.Items[0])
}

func unmarshalEvent(raw map[string]types.AttributeValue) (*history.Event, error) {
	var item eventItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event item: %w", err)
	}

	delta, err := history.ParseDelta([]byte(item.Delta))
	if err != nil {
		return nil, fmt.Errorf("failed to decode delta for event %s: %w", item.EventID, err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return &history.Event{
		ID:         item.EventID,
		MapID:      item.MapID,
		SnapshotID: item.SnapshotID,
		EventIndex: item.EventIndex,
		Delta:      delta,
		UserID:     item.UserID,
		CreatedAt:  createdAt,
	}, nil
}

func eventSK(index int) string {
	return fmt.Sprintf("EVENT#%08d", index)
}

var _ ports.EventRepository = (*EventStore)(nil)
