package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ScanAPI is the slice of the DynamoDB data-plane API the health probe needs.
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Health probes table reachability with a limit-1 scan, the cheapest request
// that exercises the full data path.
type Health struct {
	client ScanAPI
	table  string
}

func NewHealth(client ScanAPI, table string) *Health {
	return &Health{client: client, table: table}
}

// Ping returns the probe's item count, or an error if the table is unreachable.
func (h *Health) Ping(ctx context.Context) (int32, error) {
	out, err := h.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(h.table),
		Limit:     aws.Int32(1),
	})
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}
