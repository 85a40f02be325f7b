package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/routine"
	"go.uber.org/zap"
)

type kafkaProducer struct {
	log    logger.Logger
	config *ProducerConfig
	p      *kafka.Producer

	closed atomic.Bool
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewProducer connects a kafka producer. Delivery reports are drained on a
// background goroutine and failures are logged.
func NewProducer(log logger.Logger, config *ProducerConfig, checkBrokers bool) (Producer, error) {
	if config == nil {
		config = DefaultProducerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if checkBrokers {
		if err := checkCluster(log, config.Brokers); err != nil {
			return nil, err
		}
	}

	p, err := kafka.NewProducer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}

	kp := &kafkaProducer{
		log:    log,
		config: config,
		p:      p,
		done:   make(chan struct{}),
	}
	kp.wg.Add(1)
	routine.GoNamed(log, "kafka-delivery-reports", kp.deliveryReports)

	log.Info("kafka producer started", zap.Strings("brokers", config.Brokers))
	return kp, nil
}

func (kp *kafkaProducer) deliveryReports() {
	defer kp.wg.Done()

	for {
		select {
		case <-kp.done:
			return
		case e, ok := <-kp.p.Events():
			if !ok {
				return
			}
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					kp.log.Error("failed to deliver message",
						zap.String("topic", topicOf(ev)),
						zap.ByteString("key", ev.Key),
						zap.Error(ErrPublish(ev.TopicPartition.Error)),
					)
					continue
				}
				kp.log.Debug("message delivered",
					zap.String("topic", topicOf(ev)),
					zap.Int32("partition", ev.TopicPartition.Partition),
					zap.Int64("offset", int64(ev.TopicPartition.Offset)),
				)
			case kafka.Error:
				kp.log.Error("kafka producer error", zap.Int("code", int(ev.Code())), zap.Error(ev))
			default:
				kp.log.Debug("ignored producer event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Produce enqueues msg. It only fails when the local queue rejects it.
func (kp *kafkaProducer) Produce(_ context.Context, msg *Message) error {
	if kp.closed.Load() {
		return ErrClosed
	}
	if msg.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}

	topic := msg.Topic
	km := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            msg.Key,
		Value:          msg.Value,
	}
	for k, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := kp.p.Produce(km, nil); err != nil {
		return ErrPublish(err)
	}
	return nil
}

// Close flushes queued messages and closes the producer.
func (kp *kafkaProducer) Close() error {
	if !kp.closed.CompareAndSwap(false, true) {
		return nil
	}

	if remaining := kp.p.Flush(int(kp.config.FlushTimeout.Milliseconds())); remaining > 0 {
		kp.log.Warn("messages left unflushed on close", zap.Int("remaining", remaining))
	}
	close(kp.done)
	kp.wg.Wait()
	kp.p.Close()

	kp.log.Info("kafka producer closed")
	return nil
}

func topicOf(m *kafka.Message) string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}
