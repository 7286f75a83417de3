package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawMeasurementMessage is the JSON payload the upstream scraper publishes for
// each row of the measurement table. ObservedAt is RFC 3339; when it is empty
// the Dutch page header is parsed instead, and failing that the message
// timestamp is used.
type RawMeasurementMessage struct {
	ObservedAt string   `json:"t,omitempty"`
	Header     string   `json:"header,omitempty"`
	Cells      []string `json:"cells"`
}
