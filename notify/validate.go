package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/savekit/logger"
	"go.uber.org/zap"
)

const (
	clusterCheckRetries = 3
	clusterCheckDelay   = 2 * time.Second
	clusterCheckTimeout = 10 * time.Second
)

// checkCluster fetches cluster metadata once so that a wrong broker list
// fails at startup instead of in the first delivery report.
func checkCluster(log logger.Logger, brokers []string) error {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": int(clusterCheckTimeout.Milliseconds()),
	}

	var (
		admin *kafka.AdminClient
		err   error
	)
	for attempt := 1; attempt <= clusterCheckRetries; attempt++ {
		if admin, err = kafka.NewAdminClient(configMap); err == nil {
			break
		}
		if attempt < clusterCheckRetries {
			log.Warn("failed to create kafka admin client, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", clusterCheckRetries),
			)
			time.Sleep(clusterCheckDelay)
		}
	}
	if err != nil {
		return ErrConnection(fmt.Errorf("admin client after %d attempts: %w", clusterCheckRetries, err))
	}
	defer admin.Close()

	if _, err := admin.GetMetadata(nil, false, int(clusterCheckTimeout.Milliseconds())); err != nil {
		return ErrConnection(err)
	}

	log.Info("kafka brokers reachable", zap.Strings("brokers", brokers))
	return nil
}
