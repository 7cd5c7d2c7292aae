package store

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	inputs []*dynamodb.PutItemInput
	err    error
}

func (f *fakePutter) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoEventLog_Publish(t *testing.T) {
	putter := &fakePutter{}
	log := NewDynamoEventLog(putter, "events")

	event, err := NewEvent("order-1", "order", "OrderPlaced", 1, map[string]string{"order_number": "ORD-1"})
	require.NoError(t, err)
	event.Timestamp = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	require.NoError(t, log.Publish(context.Background(), "order-1", event))
	require.Len(t, putter.inputs, 1)

	in := putter.inputs[0]
	assert.Equal(t, "events", *in.TableName)
	assert.Contains(t, *in.ConditionExpression, "attribute_not_exists")

	var item dynamoEvent
	require.NoError(t, attributevalue.UnmarshalMap(in.Item, &item))
	assert.Equal(t, "order-1", item.AggregateID)
	assert.Equal(t, 1, item.Version)
	assert.Equal(t, "OrderPlaced", item.EventType)
	assert.JSONEq(t, `{"order_number":"ORD-1"}`, item.Data)
	assert.Equal(t, "2026-05-04T09:30:00Z", item.CreatedAt)
}

func TestDynamoEventLog_DuplicateVersion(t *testing.T) {
	putter := &fakePutter{err: &types.ConditionalCheckFailedException{}}
	log := NewDynamoEventLog(putter, "events")

	event, err := NewEvent("order-1", "order", "OrderPlaced", 1, nil)
	require.NoError(t, err)

	err = log.Publish(context.Background(), "order-1", &event)
	assert.ErrorIs(t, err, ErrDuplicateEvent)
}

func TestDynamoEventLog_RejectsUnknownPayload(t *testing.T) {
	log := NewDynamoEventLog(&fakePutter{}, "events")
	err := log.Publish(context.Background(), "k", "not an event")
	assert.Error(t, err)
}
