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
	"mindmesh-backend/domain/graph"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// SnapshotStore persists full compressed graph states. Snapshots sort under
// their map by zero-padded index, so the latest is one descending Query away.
type SnapshotStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSnapshotStore creates a new SnapshotStore
func NewSnapshotStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type snapshotItem struct {
	PK            string `dynamodbav:"PK"` // MAP#<map_id>
	SK            string `dynamodbav:"SK"` // SNAPSHOT#<index padded>
	SnapshotID    string `dynamodbav:"SnapshotID"`
	MapID         string `dynamodbav:"MapID"`
	SnapshotIndex int    `dynamodbav:"SnapshotIndex"`
	State         string `dynamodbav:"State"` // JSON-encoded graph state
	CreatedAt     string `dynamodbav:"CreatedAt"`
}

// Save implements ports.SnapshotRepository
func (s *SnapshotStore) Save(ctx context.Context, snapshot *history.Snapshot) error {
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot state: %w", err)
	}

	item, err := attributevalue.MarshalMap(snapshotItem{
		PK:            "MAP#" + snapshot.MapID,
		SK:            snapshotSK(snapshot.SnapshotIndex),
		SnapshotID:    snapshot.ID,
		MapID:         snapshot.MapID,
		SnapshotIndex: snapshot.SnapshotIndex,
		State:         string(state),
		CreatedAt:     snapshot.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}

	s.logger.Debug("Saved snapshot",
		zap.String("mapID", snapshot.MapID),
		zap.String("snapshotID", snapshot.ID),
		zap.Int("snapshotIndex", snapshot.SnapshotIndex),
	)
	return nil
}

// GetByID implements ports.SnapshotRepository
func (s *SnapshotStore) GetByID(ctx context.Context, mapID, snapshotID string) (*history.Snapshot, error) {
	keyCond := expression.Key("PK").Equal(expression.Value("MAP#" + mapID)).
		And(expression.Key("SK").BeginsWith("SNAPSHOT#"))
	filter := expression.Name("SnapshotID").Equal(expression.Value(snapshotID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot query: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &s.tableName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", snapshotID, err)
	}
	if len(out.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("snapshot")
	}

	return unmarshalSnapshot(out.Items[0])
}

// GetLatest implements ports.SnapshotRepository
func (s *SnapshotStore) GetLatest(ctx context.Context, mapID string) (*history.Snapshot, error) {
	keyCond := expression.Key("PK").Equal(expression.Value("MAP#" + mapID)).
		And(expression.Key("SK").BeginsWith("SNAPSHOT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot query: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &s.tableName,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot for map %s: %w", mapID, err)
	}
	if len(out.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("snapshot")
	}

	return unmarshalSnapshot(out.Items[0])
}

func unmarshalSnapshot(raw map[string]types.AttributeValue) (*history.Snapshot, error) {
	var item snapshotItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot item: %w", err)
	}

	var state graph.State
	if err := json.Unmarshal([]byte(item.State), &state); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot state: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return &history.Snapshot{
		ID:            item.SnapshotID,
		MapID:         item.MapID,
		SnapshotIndex: item.SnapshotIndex,
		State:         state,
		CreatedAt:     createdAt,
	}, nil
}

func snapshotSK(index int) string {
	return fmt.Sprintf("SNAPSHOT#%08d", index)
}

var _ ports.SnapshotRepository = (*SnapshotStore)(nil)
