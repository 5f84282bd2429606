package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/pkg/config"
	"github.com/joymathews/my-daily-log-app/pkg/logger"
)

// tableReadyTimeout bounds the wait for a newly created table to become active.
const tableReadyTimeout = 60 * time.Second

// AdminAPI is the slice of the DynamoDB control-plane API the bootstrap needs.
type AdminAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// EnsureTableExists idempotently provisions the events table. If the table is
// absent it is created with the per-user secondary index and on-demand billing,
// then waited on until active. If the table exists but lacks the index, that is
// only warned about: rewriting the schema of a live table is not something the
// service should do on its own.
//
// Errors are returned for the caller to log; startup proceeds regardless.
func EnsureTableExists(ctx context.Context, client AdminAPI, cfg config.TableConfig, log *logger.Logger) error {
	log.Info("Checking if DynamoDB table exists", zap.String("table", cfg.Name))

	tables, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	for _, name := range tables.TableNames {
		if name == cfg.Name {
			return checkSecondaryIndex(ctx, client, cfg, log)
		}
	}

	log.Info("Table doesn't exist, creating it", zap.String("table", cfg.Name))

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(cfg.Name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("userSub"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("timestamp"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(cfg.IndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("userSub"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("timestamp"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", cfg.Name, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(cfg.Name)}, tableReadyTimeout); err != nil {
		return fmt.Errorf("table %s did not become active: %w", cfg.Name, err)
	}

	log.Info("Table created successfully", zap.String("table", cfg.Name))
	return nil
}

func checkSecondaryIndex(ctx context.Context, client AdminAPI, cfg config.TableConfig, log *logger.Logger) error {
	desc, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(cfg.Name)})
	if err != nil {
		return fmt.Errorf("failed to describe table %s: %w", cfg.Name, err)
	}

	for _, gsi := range desc.Table.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) == cfg.IndexName {
			log.Info("Table exists and has the per-user index",
				zap.String("table", cfg.Name),
				zap.String("index", cfg.IndexName))
			return nil
		}
	}

	log.Warn("Table exists but is missing the per-user index; queries by user will fail until the table is migrated or recreated",
		zap.String("table", cfg.Name),
		zap.String("index", cfg.IndexName))
	return nil
}
