package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

// Kafka topics, one per event kind.
var (
	submissionsTopic   = "sequencer.submissions"
	confirmationsTopic = "sequencer.confirmations"
	failuresTopic      = "sequencer.failures"

	// slashingTopic is reserved. Nothing in the core publishes to it.
	slashingTopic = "sequencer.slashing"
)

// KafkaEmitter publishes events to Kafka. Delivery failures are logged,
// never propagated: the ledger state change has already happened.
type KafkaEmitter struct {
	producer *kafka.Producer
	logger   *logging.Logger
}

// NewKafkaEmitter creates an emitter connected to the given brokers.
func NewKafkaEmitter(brokers string, logger *logging.Logger) (*KafkaEmitter, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaEmitter{
		producer: producer,
		logger:   logger,
	}, nil
}

// Close flushes outstanding messages and closes the producer.
func (e *KafkaEmitter) Close() {
	e.producer.Flush(15 * 1000)
	e.producer.Close()
}

// SubmissionAccepted publishes a submission event.
func (e *KafkaEmitter) SubmissionAccepted(ctx context.Context, ev SubmissionEvent) {
	e.publish(&submissionsTopic, ev.ID, ev)
}

// ReceiptConfirmed publishes a confirmation event.
func (e *KafkaEmitter) ReceiptConfirmed(ctx context.Context, ev ConfirmationEvent) {
	e.publish(&confirmationsTopic, ev.ID, ev)
}

// ReceiptFailed publishes a failure event.
func (e *KafkaEmitter) ReceiptFailed(ctx context.Context, ev FailureEvent) {
	e.publish(&failuresTopic, ev.ID, ev)
}

// SequencerSlashed publishes to the reserved slashing topic. No core code
// calls this; it exists for operators wiring future slashing logic.
func (e *KafkaEmitter) SequencerSlashed(ctx context.Context, ev SlashingEvent) {
	e.publish(&slashingTopic, ev.Sequencer, ev)
}

func (e *KafkaEmitter) publish(topic *string, key string, ev interface{}) {
	value, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error("Error serializing event", "topic", *topic, "error", err)
		return
	}

	err = e.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: value,
	}, nil)

	if err != nil {
		e.logger.Error("Error publishing event", "topic", *topic, "key", key, "error", err)
	}
}

// Ping checks broker reachability for health checks.
func (e *KafkaEmitter) Ping(ctx context.Context) error {
	_, err := e.producer.GetMetadata(nil, true, 2000)
	return err
}
