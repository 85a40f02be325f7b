package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/routine"
	"go.uber.org/zap"
)

type kafkaConsumer struct {
	log    logger.Logger
	config *ConsumerConfig
	c      *kafka.Consumer

	started atomic.Bool
	closed  atomic.Bool
	stopped chan struct{}
}

// NewConsumer connects a kafka consumer and subscribes to config.Topics.
func NewConsumer(log logger.Logger, config *ConsumerConfig, checkBrokers bool) (Consumer, error) {
	if config == nil {
		config = DefaultConsumerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if checkBrokers {
		if err := checkCluster(log, config.Brokers); err != nil {
			return nil, err
		}
	}

	c, err := kafka.NewConsumer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := c.SubscribeTopics(config.Topics, nil); err != nil {
		_ = c.Close()
		return nil, ErrSubscribe(config.Topics, err)
	}

	return &kafkaConsumer{log: log, config: config, c: c, stopped: make(chan struct{})}, nil
}

// Start runs the poll loop on its own goroutine until ctx is done or the
// brokers go away.
func (kc *kafkaConsumer) Start(ctx context.Context, handler Handler) error {
	if kc.closed.Load() {
		return ErrClosed
	}
	if !kc.started.CompareAndSwap(false, true) {
		return nil
	}

	routine.GoNamedWithContext(ctx, kc.log, "kafka-consumer", func(ctx context.Context) {
		defer close(kc.stopped)
		if err := kc.pollLoop(ctx, handler); err != nil && ctx.Err() == nil {
			kc.log.Error("kafka consumer loop exited", zap.String("group_id", kc.config.GroupID), zap.Error(err))
		}
	})
	kc.log.Info("kafka consumer started",
		zap.String("group_id", kc.config.GroupID),
		zap.Strings("topics", kc.config.Topics),
	)
	return nil
}

// Close stops the poll loop, leaves the group and closes the consumer.
func (kc *kafkaConsumer) Close() error {
	if !kc.closed.CompareAndSwap(false, true) {
		return nil
	}
	// the loop sees closed within one PollTimeout
	if kc.started.Load() {
		<-kc.stopped
	}
	if err := kc.c.Close(); err != nil {
		return err
	}
	kc.log.Info("kafka consumer closed", zap.String("group_id", kc.config.GroupID))
	return nil
}

func (kc *kafkaConsumer) pollLoop(ctx context.Context, handler Handler) error {
	timeout := int(kc.config.PollTimeout.Milliseconds())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if kc.closed.Load() {
			return nil
		}

		switch e := kc.c.Poll(timeout).(type) {
		case nil:
		case *kafka.Message:
			if err := kc.handle(ctx, e, handler); err != nil {
				kc.log.Error("failed to handle message",
					zap.String("topic", topicOf(e)),
					zap.Int32("partition", e.TopicPartition.Partition),
					zap.Int64("offset", int64(e.TopicPartition.Offset)),
					zap.Error(err),
				)
			}
		case kafka.Error:
			kc.log.Error("kafka consumer error", zap.Int("code", int(e.Code())), zap.Error(e))
			if e.Code() == kafka.ErrAllBrokersDown {
				return ErrConsume(e)
			}
		case kafka.OffsetsCommitted:
			if e.Error != nil {
				kc.log.Error("failed to commit offsets", zap.Error(ErrCommit(e.Error)))
			}
		default:
			kc.log.Debug("ignored consumer event", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
}

// handle retries handler and commits the message when it succeeds. A message
// that keeps failing is committed anyway so one bad invalidation does not
// stall the partition.
func (kc *kafkaConsumer) handle(ctx context.Context, km *kafka.Message, handler Handler) error {
	start := time.Now()
	msg := toMessage(km)

	var err error
	for attempt := 1; attempt <= kc.config.MaxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			break
		}
	}

	if !kc.config.EnableAutoCommit {
		if _, cerr := kc.c.CommitMessage(km); cerr != nil {
			return ErrCommit(cerr)
		}
	}
	if err != nil {
		return ErrConsume(err)
	}

	kc.log.Debug("message handled",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func toMessage(km *kafka.Message) *Message {
	msg := &Message{
		Topic:     topicOf(km),
		Partition: km.TopicPartition.Partition,
		Offset:    int64(km.TopicPartition.Offset),
		Key:       km.Key,
		Value:     km.Value,
		Timestamp: km.Timestamp,
	}
	if len(km.Headers) > 0 {
		msg.Headers = make(map[string]string, len(km.Headers))
		for _, h := range km.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}
