package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrDuplicateEvent is returned when an aggregate version was already logged.
var ErrDuplicateEvent = errors.New("event version already logged")

// DynamoPutter is the slice of the DynamoDB client the event log needs.
type DynamoPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoEventLog appends order events to a DynamoDB table. The table's
// Kinesis stream feeds the notifier lambda.
type DynamoEventLog struct {
	client    DynamoPutter
	tableName string
}

// dynamoEvent is the item layout; the Kinesis record adapter reads the same attributes.
type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int    `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
	GSI1PK        string `dynamodbav:"gsi1pk"`
}

func NewDynamoEventLog(client DynamoPutter, tableName string) *DynamoEventLog {
	return &DynamoEventLog{client: client, tableName: tableName}
}

// Publish writes event, which must be an Event, with a conditional put so a
// version is never logged twice.
func (l *DynamoEventLog) Publish(ctx context.Context, key string, event any) error {
	var e Event
	switch v := event.(type) {
	case Event:
		e = v
	case *Event:
		e = *v
	default:
		return fmt.Errorf("dynamo event log: unsupported event type %T", event)
	}
	if e.AggregateID == "" {
		e.AggregateID = key
	}

	item := dynamoEvent{
		AggregateID:   e.AggregateID,
		Version:       e.Version,
		ID:            e.ID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		Data:          string(e.Data),
		CreatedAt:     e.Timestamp.Format(time.RFC3339Nano),
		GSI1PK:        "EVENTS",
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) AND attribute_not_exists(version)"),
	})
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %s v%d", ErrDuplicateEvent, e.AggregateID, e.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	return nil
}
