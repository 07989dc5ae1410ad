package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/teslashibe/go-conepose/internal/config"
	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/protocol"
)

const (
	maxRetries   = 5
	baseBackoff  = 100 * time.Millisecond
	flushTimeout = 30 * time.Second
)

// KafkaPublisher produces one message per result, keyed by result ID.
type KafkaPublisher struct {
	producer     *kafka.Producer
	topic        string
	deliveryChan chan kafka.Event

	sent   atomic.Int64
	acked  atomic.Int64
	failed atomic.Int64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// ConfigMap builds the librdkafka settings for cfg. SASL keys are only set
// when a mechanism is configured.
func ConfigMap(cfg config.Kafka) *kafka.ConfigMap {
	m := &kafka.ConfigMap{
		"bootstrap.servers":   cfg.BootstrapServers,
		"security.protocol":   cfg.SecurityProtocol,
		"acks":                cfg.Acks,
		"enable.idempotence":  cfg.Acks == "all",
		"linger.ms":           5,
		"request.timeout.ms":  30000,
		"delivery.timeout.ms": 120000,
	}
	if cfg.SASLMechanism != "" {
		m.SetKey("sasl.mechanism", cfg.SASLMechanism)
		m.SetKey("sasl.username", cfg.SASLUsername)
		m.SetKey("sasl.password", cfg.SASLPassword)
	}
	return m
}

// NewKafkaPublisher connects a producer and starts its delivery report loop.
func NewKafkaPublisher(cfg config.Kafka) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka bootstrap servers not configured")
	}

	p, err := kafka.NewProducer(ConfigMap(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	kp := &KafkaPublisher{
		producer:     p,
		topic:        cfg.Topic,
		deliveryChan: make(chan kafka.Event, 1000),
		ctx:          ctx,
		cancel:       cancel,
	}

	kp.wg.Add(1)
	go kp.handleDeliveryReports()

	log.Info("kafka publisher ready", "topic", cfg.Topic, "servers", cfg.BootstrapServers)
	return kp, nil
}

func (kp *KafkaPublisher) handleDeliveryReports() {
	defer kp.wg.Done()

	for {
		select {
		case <-kp.ctx.Done():
			return
		case e := <-kp.deliveryChan:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				kp.failed.Add(1)
				log.Warn("kafka delivery failed", "error", m.TopicPartition.Error, "key", string(m.Key))
				continue
			}
			kp.acked.Add(1)
			log.Debug("kafka delivered",
				"partition", m.TopicPartition.Partition,
				"offset", m.TopicPartition.Offset.String())
		}
	}
}

// BuildMessage encodes a result as a Kafka message for topic.
func BuildMessage(topic string, result protocol.ResultData) (*kafka.Message, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(result.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "orientation", Value: []byte(result.Orientation)},
			{Key: "found", Value: []byte(strconv.FormatBool(result.Found))},
		},
	}, nil
}

// Publish queues the result, retrying retriable errors with exponential
// backoff until ctx is done.
func (kp *KafkaPublisher) Publish(ctx context.Context, result protocol.ResultData) error {
	message, err := BuildMessage(kp.topic, result)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := kp.producer.Produce(message, kp.deliveryChan)
		if err == nil {
			kp.sent.Add(1)
			return nil
		}
		lastErr = err

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) && !kafkaErr.IsRetriable() && kafkaErr.Code() != kafka.ErrQueueFull {
			kp.failed.Add(1)
			return fmt.Errorf("non-retriable error: %w", err)
		}
	}

	kp.failed.Add(1)
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// Metrics returns the current delivery counters.
func (kp *KafkaPublisher) Metrics() Metrics {
	return Metrics{
		Sent:   kp.sent.Load(),
		Acked:  kp.acked.Load(),
		Failed: kp.failed.Load(),
	}
}

// Close flushes pending messages, stops the report loop and closes the
// producer. It is safe to call more than once.
func (kp *KafkaPublisher) Close() error {
	kp.once.Do(func() {
		if remaining := kp.producer.Flush(int(flushTimeout.Milliseconds())); remaining > 0 {
			log.Warn("kafka messages still queued after flush", "remaining", remaining)
		}
		kp.cancel()
		kp.wg.Wait()
		kp.producer.Close()

		m := kp.Metrics()
		log.Info("kafka publisher closed", "sent", m.Sent, "acked", m.Acked, "failed", m.Failed)
	})
	return nil
}
