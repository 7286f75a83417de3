// Command genmock publishes a measurement CSV export to the source topic, one
// message per row, in the payload format the upstream scraper produces. With
// -dry-run the payloads are printed as JSON lines instead.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/measurements.csv \
//	  -brokers localhost:9092 \
//	  -topic raw-station-measurements
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/station-observation-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

// dutchMonths is indexed by time.Month.
var dutchMonths = [...]string{"", "januari", "februari", "maart", "april", "mei", "juni",
	"juli", "augustus", "september", "oktober", "november", "december"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "data/mock/measurements.csv", "measurement CSV export to publish")
	brokers := flag.String("brokers", sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"), "comma-separated Kafka brokers")
	topic := flag.String("topic", sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-station-measurements"), "source topic")
	header := flag.Bool("header", false, "send the Dutch page header instead of an RFC 3339 time")
	dryRun := flag.Bool("dry-run", false, "print payloads instead of publishing")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	records, warnings, err := csvsource.ReadMeasurements(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", *csvPath, err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	msgs := make([]kafkago.Message, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rawMessage(rec, *header))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(rec.StationName),
			Value: payload,
			Time:  rec.Timestamp,
		})
	}

	if *dryRun {
		for _, m := range msgs {
			fmt.Println(string(m.Value))
		}
		return nil
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(sharedcfg.ParseBrokers(*brokers)...),
		Topic:                  *topic,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", *topic, err)
	}
	log.Printf("published %d measurement rows to %s", len(msgs), *topic)
	return nil
}

func rawMessage(rec domain.MeasurementRecord, withHeader bool) domain.RawMeasurementMessage {
	msg := domain.RawMeasurementMessage{Cells: rec.Cells()}
	if !withHeader {
		msg.ObservedAt = rec.Timestamp.Format(time.RFC3339)
		return msg
	}
	local := rec.Timestamp.In(amsterdam())
	msg.Header = fmt.Sprintf("Waarnemingen %d %s %d %02d:%02d uur",
		local.Day(), dutchMonths[local.Month()], local.Year(), local.Hour(), local.Minute())
	return msg
}

func amsterdam() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return time.UTC
	}
	return loc
}
