package broker

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

type RabbitMQPublisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewRabbitMQPublisher(ch *amqp.Channel, exchange string) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		channel:  ch,
		exchange: exchange,
	}
}

// Publish sends the outbox record as a persistent message. The record id
// rides as MessageId so idempotent consumers can deduplicate redeliveries.
func (p *RabbitMQPublisher) Publish(ctx context.Context, record *entity.Outbox) error {
	headers := amqp.Table{
		"event_type":     record.EventType,
		"correlation_id": record.CorrelationID,
	}
	if record.CausationID != "" {
		headers["causation_id"] = record.CausationID
	}

	err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey(record.EventType),
		true,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          []byte(record.Payload),
			DeliveryMode:  amqp.Persistent,
			MessageId:     record.ID,
			CorrelationId: record.CorrelationID,
			Timestamp:     record.OccurredAt,
			Headers:       headers,
		},
	)
	if err != nil {
		return fmt.Errorf("publish record %s: %w", record.ID, err)
	}

	return nil
}

// routingKey maps e.g. "TransferCompleted" to "transfer.transfercompleted".
func routingKey(eventType string) string {
	return "transfer." + strings.ToLower(eventType)
}
