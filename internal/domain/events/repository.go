package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/joymathews/my-daily-log-app/pkg/config"
)

// ErrInvalidDate means a date filter was not a YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("invalid date")

// Repository is the event store access layer. All per-user reads go through
// the secondary index; there is deliberately no scan-based read path.
type Repository interface {
	Put(ctx context.Context, event *Event) error
	QueryByUser(ctx context.Context, userSub string) ([]Event, error)
	QueryByUserAndDate(ctx context.Context, userSub, dateISO string) ([]Event, error)
	DistinctEventDates(ctx context.Context, userSub string) ([]string, error)
}

// DynamoAPI is the slice of the DynamoDB data-plane API the repository needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type dynamoRepository struct {
	client DynamoAPI
	table  string
	index  string
}

func NewRepository(client DynamoAPI, cfg config.TableConfig) Repository {
	return &dynamoRepository{client: client, table: cfg.Name, index: cfg.IndexName}
}

func (r *dynamoRepository) Put(ctx context.Context, event *Event) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put event %s: %w", event.ID, err)
	}
	return nil
}

func (r *dynamoRepository) QueryByUser(ctx context.Context, userSub string) ([]Event, error) {
	return r.queryIndex(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.index),
		KeyConditionExpression: aws.String("userSub = :userSub"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userSub": &types.AttributeValueMemberS{Value: userSub},
		},
	})
}

func (r *dynamoRepository) QueryByUserAndDate(ctx context.Context, userSub, dateISO string) ([]Event, error) {
	dayStart, dayEnd, err := dayRangeUTC(dateISO)
	if err != nil {
		return nil, err
	}
	return r.queryIndex(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.index),
		KeyConditionExpression: aws.String("userSub = :userSub AND #ts BETWEEN :dayStart AND :dayEnd"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userSub":  &types.AttributeValueMemberS{Value: userSub},
			":dayStart": &types.AttributeValueMemberS{Value: dayStart},
			":dayEnd":   &types.AttributeValueMemberS{Value: dayEnd},
		},
	})
}

func (r *dynamoRepository) DistinctEventDates(ctx context.Context, userSub string) ([]string, error) {
	// Project only the timestamp attribute; the dedup happens here.
	items, err := r.queryIndex(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.index),
		KeyConditionExpression: aws.String("userSub = :userSub"),
		ProjectionExpression:   aws.String("#ts"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userSub": &types.AttributeValueMemberS{Value: userSub},
		},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	dates := make([]string, 0, len(items))
	for i := range items {
		date := items[i].Date()
		if date == "" {
			continue
		}
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}
	return dates, nil
}

// queryIndex runs a query and follows pagination until exhausted. An empty
// result is an empty slice, not an error.
func (r *dynamoRepository) queryIndex(ctx context.Context, input *dynamodb.QueryInput) ([]Event, error) {
	results := make([]Event, 0)
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query index %s: %w", r.index, err)
		}

		var page []Event
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
		results = append(results, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return results, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// dayRangeUTC converts a calendar date into inclusive day boundaries computed
// in UTC, so date filtering never shifts by the server's timezone.
func dayRangeUTC(dateISO string) (string, string, error) {
	day, err := time.ParseInLocation("2006-01-02", dateISO, time.UTC)
	if err != nil {
		return "", "", fmt.Errorf("%w %q: %v", ErrInvalidDate, dateISO, err)
	}
	return day.Format(TimestampLayout), day.AddDate(0, 0, 1).Format(TimestampLayout), nil
}
