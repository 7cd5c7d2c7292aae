package kinesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/ec-storefront/internal/infrastructure/store"
)

var errMissingImage = errors.New("stream record has no new image")

// Decoded pairs an event with the Kinesis sequence number it arrived under.
type Decoded struct {
	SequenceNumber string
	Event          store.Event
}

// DecodeRecord turns a Kinesis record carrying a DynamoDB stream change of the
// order event log into an Event. Only INSERTs are events; other changes
// return (nil, nil).
func DecodeRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("decode stream record: %w", err)
	}
	return DecodeStreamRecord(change)
}

// DecodeStreamRecord is DecodeRecord for records read straight off DynamoDB Streams.
func DecodeStreamRecord(change events.DynamoDBEventRecord) (*store.Event, error) {
	if change.EventName != string(events.DynamoDBOperationTypeInsert) {
		return nil, nil
	}
	return decodeImage(change.Change.NewImage)
}

func decodeImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, errMissingImage
	}

	str := func(name string) string {
		if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	event := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: id=%q aggregate_id=%q event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}

	if data := str("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("event %s: data is not valid JSON", event.ID)
		}
		event.Data = json.RawMessage(data)
	}
	if created := str("created_at"); created != "" {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("event %s: created_at: %w", event.ID, err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("event %s: version: %w", event.ID, err)
		}
		event.Version = int(version)
	}
	return event, nil
}

// DecodeBatch decodes every record of a Kinesis event. Records that fail to
// decode are reported as batch item failures so Lambda retries only those.
func DecodeBatch(batch events.KinesisEvent) ([]Decoded, []events.KinesisBatchItemFailure, []error) {
	var (
		decoded  []Decoded
		failures []events.KinesisBatchItemFailure
		errs     []error
	)
	for _, record := range batch.Records {
		event, err := DecodeRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: record.Kinesis.SequenceNumber})
			continue
		}
		if event != nil {
			decoded = append(decoded, Decoded{SequenceNumber: record.Kinesis.SequenceNumber, Event: *event})
		}
	}
	return decoded, failures, errs
}
