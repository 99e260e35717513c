package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"mindmesh-backend/application/commands"
	commandbus "mindmesh-backend/application/commands/bus"
	commandhandlers "mindmesh-backend/application/commands/handlers"
	"mindmesh-backend/application/ports"
	"mindmesh-backend/application/queries"
	querybus "mindmesh-backend/application/queries/bus"
	queryhandlers "mindmesh-backend/application/queries/handlers"
	"mindmesh-backend/infrastructure/config"
	"mindmesh-backend/infrastructure/messaging"
	"mindmesh-backend/infrastructure/persistence/dynamodb"
	"mindmesh-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Maps       ports.MapRepository
	Graphs     ports.GraphRepository
	Snapshots  ports.SnapshotRepository
	Events     ports.EventRepository
	EventBus   ports.EventBus
	Metrics    *observability.Metrics
	CommandBus *commandbus.CommandBus
	QueryBus   *querybus.QueryBus
}

// ProvideLogger builds the application logger from config
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err == nil {
		zapCfg.Level = level
	}

	return zapCfg.Build()
}

// ProvideAWSConfig loads the AWS SDK configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates the DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates the EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates the CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideGraphRepository creates the map/graph repository
func ProvideGraphRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.GraphRepository {
	return dynamodb.NewGraphRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideMapRepository exposes the graph repository as a MapRepository
func ProvideMapRepository(repo *dynamodb.GraphRepository) ports.MapRepository {
	return repo
}

// ProvideGraphStatePort exposes the graph repository as a GraphRepository port
func ProvideGraphStatePort(repo *dynamodb.GraphRepository) ports.GraphRepository {
	return repo
}

// ProvideSnapshotRepository creates the snapshot store
func ProvideSnapshotRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SnapshotRepository {
	return dynamodb.NewSnapshotStore(client, cfg.DynamoDBTable, logger)
}

// ProvideEventRepository creates the history event store
func ProvideEventRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EventRepository {
	return dynamodb.NewEventStore(client, cfg.DynamoDBTable, cfg.EventIndex, logger)
}

// ProvideEventBus creates the delta fan-out publisher
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return messaging.NewEventBridgeBus(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the CloudWatch metrics publisher
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	return observability.NewMetrics(client, "MindMesh/History", cfg.EnableMetrics, logger)
}

// ProvideCommandBus wires command handlers into the command bus
func ProvideCommandBus(
	cfg *config.Config,
	maps ports.MapRepository,
	graphs ports.GraphRepository,
	snapshots ports.SnapshotRepository,
	events ports.EventRepository,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*commandbus.CommandBus, error) {
	b := commandbus.NewCommandBus(logger)

	recordHandler := commandhandlers.NewRecordChangeHandler(
		maps, graphs, snapshots, events, eventBus, metrics, cfg.SnapshotCadence, logger)
	if err := b.Register(commands.RecordChangeCommand{}, recordHandler); err != nil {
		return nil, err
	}

	revertHandler := commandhandlers.NewRevertMapHandler(
		maps, graphs, snapshots, events, metrics, logger)
	if err := b.Register(commands.RevertMapCommand{}, revertHandler); err != nil {
		return nil, err
	}

	return b, nil
}

// ProvideQueryBus wires query handlers into the query bus
func ProvideQueryBus(
	maps ports.MapRepository,
	snapshots ports.SnapshotRepository,
	events ports.EventRepository,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	b := querybus.NewQueryBus(logger)

	if err := b.Register(queries.GetHistoryQuery{}, queryhandlers.NewGetHistoryHandler(maps, snapshots, events, logger)); err != nil {
		return nil, err
	}
	if err := b.Register(queries.GetSnapshotStateQuery{}, queryhandlers.NewGetSnapshotStateHandler(maps, snapshots, logger)); err != nil {
		return nil, err
	}

	return b, nil
}
