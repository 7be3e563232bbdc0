package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/scour-io/scour/internal/logging"
)

// KafkaConfig configures the Kafka alert sink.
type KafkaConfig struct {
	// Brokers are the Kafka seed brokers.
	Brokers []string

	// Topic is the alert topic.
	Topic string

	// Host tags every alert with the reporting event builder.
	Host string
}

// message is the wire format of one alert.
type message struct {
	Host     string `json:"host"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Run      int    `json:"run,omitempty"`
	At       string `json:"at"`
}

// KafkaSink publishes alerts to a Kafka topic so fleet-wide operator
// tooling can consume them. Publishing is asynchronous; a delivery
// failure is logged and dropped.
type KafkaSink struct {
	client *kgo.Client
	config KafkaConfig
	log    *logging.Logger
}

// NewKafkaSink creates a KafkaSink.
func NewKafkaSink(cfg KafkaConfig, log *logging.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("alert: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("alert: topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("alert: create kafka client: %w", err)
	}
	return &KafkaSink{client: client, config: cfg, log: log}, nil
}

func (s *KafkaSink) Report(ctx context.Context, priority Priority, msg string, run int) {
	payload, err := json.Marshal(message{
		Host:     s.config.Host,
		Priority: string(priority),
		Message:  msg,
		Run:      run,
		At:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Errorf("alert: encode failed", map[string]any{"error": err.Error()})
		return
	}

	record := &kgo.Record{Value: payload}
	if run > 0 {
		// Key by run number so alerts for one run land in one partition.
		record.Key = []byte(strconv.Itoa(run))
	}

	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.log.Errorf("alert: publish failed", map[string]any{
				"error": err.Error(),
				"topic": s.config.Topic,
			})
		}
	})
}

// Close flushes outstanding alerts and releases the client.
func (s *KafkaSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Flush(ctx)
	s.client.Close()
	return nil
}
