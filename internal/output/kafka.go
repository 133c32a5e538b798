package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/chrisdamba/ridehailsim/internal/models"
)

// KafkaSink streams snapshots to a topic, keyed by run id so consumers can
// partition by run.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	runID    string
}

func NewKafkaSink(brokerList, topic, runID string) (*KafkaSink, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(strings.Split(brokerList, ","), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaSink{producer: producer, topic: topic, runID: runID}, nil
}

func (k *KafkaSink) WriteSnapshot(snap models.Snapshot) error {
	if k.producer == nil {
		return fmt.Errorf("Kafka producer is closed")
	}
	msg, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(k.runID),
		Value: sarama.ByteEncoder(msg),
	})
	return err
}

func (k *KafkaSink) Close() error {
	if k.producer == nil {
		return nil
	}
	err := k.producer.Close()
	k.producer = nil
	return err
}
