// Command seedenrollment publishes student enrollment records to the Kafka
// topic read by mapserver when ENROLLMENT_SOURCE=kafka. Records come from a
// JSON or YAML fixture, or from the built-in sample when -file is omitted.
//
// Usage:
//
//	go run ./cmd/seedenrollment \
//	  -brokers localhost:9092 \
//	  -topic student-enrollment \
//	  -file internal/adapter/fixture/testdata/enrollment.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/city-enrollment-map/internal/adapter/fixture"
	kafkaadapter "github.com/couchcryptid/city-enrollment-map/internal/adapter/kafka"
	"github.com/couchcryptid/city-enrollment-map/internal/config"
	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/couchcryptid/city-enrollment-map/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	brokers := flag.String("brokers", strings.Join(cfg.KafkaBrokers, ","), "comma-separated Kafka brokers")
	topic := flag.String("topic", cfg.KafkaEnrollmentTopic, "enrollment topic")
	file := flag.String("file", "", "JSON or YAML enrollment fixture (defaults to the built-in sample)")
	flag.Parse()

	if *brokers == "" || *topic == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -brokers, -topic")
	}
	cfg.KafkaBrokers = strings.Split(*brokers, ",")
	cfg.KafkaEnrollmentTopic = *topic

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records := domain.SampleEnrollment()
	if *file != "" {
		records, err = fixture.File{Path: *file}.LoadEnrollment(ctx)
		if err != nil {
			return err
		}
	}
	if err := domain.ValidateEnrollment(records); err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	w := kafkaadapter.NewWriter(cfg, clockwork.NewRealClock(), logger)
	defer func() {
		if err := w.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close writer: %v\n", err)
		}
	}()

	if err := w.Publish(ctx, records); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	log.Printf("published %d records to %s", len(records), cfg.KafkaEnrollmentTopic)
	return nil
}
