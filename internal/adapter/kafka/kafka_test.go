package kafka

import (
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("De Bilt"),
		Value:     []byte(`{"cells":["De Bilt"]}`),
		Topic:     "raw-station-measurements",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("knmi")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("De Bilt"), raw.Key)
	assert.JSONEq(t, `{"cells":["De Bilt"]}`, string(raw.Value))
	assert.Equal(t, "raw-station-measurements", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "knmi", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	observed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	processed := time.Date(2026, 10, 19, 12, 3, 0, 0, time.UTC)
	temp := 11.4
	rec := domain.ObservationRecord{
		MeasurementRecord: domain.MeasurementRecord{
			Timestamp:   observed,
			StationName: "Den Helder",
			Temp:        &temp,
		},
		StationID:   "235",
		MatchedName: "De Kooy",
		MatchScore:  1,
		Geometry:    domain.Point{Lon: 4.7833, Lat: 52.9167},
		ProcessedAt: processed,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("235"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "station_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("235"), msg.Headers[0].Value)
	assert.Equal(t, "observed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-10-19T12:00:00Z"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(processed.Format(time.RFC3339)), msg.Headers[2].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "Den Helder", body["name"])
	assert.Equal(t, "De Kooy", body["matched_name"])
	assert.Equal(t, 11.4, body["temp"])
	assert.NotContains(t, body, "rel_humid", "null fields are omitted")
	assert.Equal(t, map[string]any{
		"type":        "Point",
		"coordinates": []any{4.7833, 52.9167},
	}, body["geometry"])

	var back domain.ObservationRecord
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, rec.Geometry, back.Geometry)
	assert.Equal(t, rec.StationID, back.StationID)
}
