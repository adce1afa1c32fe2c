package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
	})
	return &Producer{Writer: writer}
}

// PublishCheckInEvent streams a guest state transition to the topic
// matching its action. Messages are keyed by guest id so per-guest
// ordering is preserved.
func (p *Producer) PublishCheckInEvent(event models.CheckInEventDto) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := topicForAction(event.Action)
	fmt.Printf("Publishing to Kafka [%s]: %s\n", topic, string(msgBytes))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(event.GuestID),
			Value: msgBytes,
		},
	)
}

func topicForAction(action string) string {
	switch action {
	case models.ActionUndoCheckIn:
		return TopicCheckInUndone
	case models.ActionBulkCheckIn:
		return TopicBulkCheckIn
	default:
		return TopicCheckInCompleted
	}
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
