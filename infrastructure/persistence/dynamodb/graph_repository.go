package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mindmesh-backend/application/ports"
	"mindmesh-backend/domain/graph"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// GraphRepository stores map metadata and the two current entity collections
// in the single table. Nodes and edges live in separate items and are written
// by separate calls; there is deliberately no transaction spanning them.
type GraphRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewGraphRepository creates a new GraphRepository
func NewGraphRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *GraphRepository {
	return &GraphRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type mapItem struct {
	PK        string `dynamodbav:"PK"` // MAP#<map_id>
	SK        string `dynamodbav:"SK"` // METADATA
	MapID     string `dynamodbav:"MapID"`
	UserID    string `dynamodbav:"UserID"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

type collectionItem struct {
	PK        string `dynamodbav:"PK"` // MAP#<map_id>
	SK        string `dynamodbav:"SK"` // NODES | EDGES
	Payload   string `dynamodbav:"Payload"` // JSON array of entities
	Count     int    `dynamodbav:"Count"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// GetOwner implements ports.MapRepository
func (r *GraphRepository) GetOwner(ctx context.Context, mapID string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.tableName,
		Key:       mapKey(mapID, "METADATA"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get map %s: %w", mapID, err)
	}
	if out.Item == nil {
		return "", pkgerrors.NewNotFoundError("map")
	}

	var item mapItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", fmt.Errorf("failed to unmarshal map item: %w", err)
	}
	return item.UserID, nil
}

// GetState implements ports.GraphRepository
func (r *GraphRepository) GetState(ctx context.Context, mapID string) (graph.State, error) {
	nodes, err := r.getCollection(ctx, mapID, "NODES")
	if err != nil {
		return graph.State{}, err
	}
	edges, err := r.getCollection(ctx, mapID, "EDGES")
	if err != nil {
		return graph.State{}, err
	}
	return graph.State{Nodes: nodes, Edges: edges}, nil
}

// PutNodes implements ports.GraphRepository
func (r *GraphRepository) PutNodes(ctx context.Context, mapID string, nodes []graph.Entity) error {
	return r.putCollection(ctx, mapID, "NODES", nodes)
}

// PutEdges implements ports.GraphRepository
func (r *GraphRepository) PutEdges(ctx context.Context, mapID string, edges []graph.Entity) error {
	return r.putCollection(ctx, mapID, "EDGES", edges)
}

func (r *GraphRepository) getCollection(ctx context.Context, mapID, kind string) ([]graph.Entity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.tableName,
		Key:       mapKey(mapID, kind),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s for map %s: %w", kind, mapID, err)
	}
	if out.Item == nil {
		return []graph.Entity{}, nil
	}

	var item collectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s item: %w", kind, err)
	}

	var entities []graph.Entity
	if err := json.Unmarshal([]byte(item.Payload), &entities); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return entities, nil
}

func (r *GraphRepository) putCollection(ctx context.Context, mapID, kind string, entities []graph.Entity) error {
	if entities == nil {
		entities = []graph.Entity{}
	}
	payload, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	item, err := attributevalue.MarshalMap(collectionItem{
		PK:        "MAP#" + mapID,
		SK:        kind,
		Payload:   string(payload),
		Count:     len(entities),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s item: %w", kind, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to write %s for map %s: %w", kind, mapID, err)
	}

	r.logger.Debug("Persisted collection",
		zap.String("mapID", mapID),
		zap.String("collection", kind),
		zap.Int("count", len(entities)),
	)
	return nil
}

func mapKey(mapID, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "MAP#" + mapID},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// isConditionFailed reports a conditional check failure
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

var _ ports.MapRepository = (*GraphRepository)(nil)
var _ ports.GraphRepository = (*GraphRepository)(nil)
