package kafka

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Topics carrying guest check-in activity to downstream consumers
// (display boards, analytics pipelines).
const (
	TopicCheckInCompleted = "guestlist.checkin.completed"
	TopicCheckInUndone    = "guestlist.checkin.undone"
	TopicBulkCheckIn      = "guestlist.checkin.bulk"
)

// RequiredTopics lists every topic the service publishes to.
func RequiredTopics() []string {
	return []string{TopicCheckInCompleted, TopicCheckInUndone, TopicBulkCheckIn}
}

// EnsureTopicsExist creates any missing topics on the cluster controller at
// startup. An already existing topic is not an error.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to resolve cluster controller: %w", err)
	}

	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	if err := controllerConn.CreateTopics(configs...); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create topics: %w", err)
	}
	return nil
}
