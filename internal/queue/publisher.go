package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AdmissionQueue     = "gate.admitted"
	SecurityAlertQueue = "gate.security_alert"
)

// Publisher delivers audit events to RabbitMQ. Publishing is best-effort
// from the caller's point of view: errors are logged and returned, and the
// scan flow treats them as non-fatal (an unreachable broker must never block
// a gate).
type Publisher struct {
	url    string
	logger *log.Logger
}

func NewPublisher(url string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{url: url, logger: logger}
}

func (p *Publisher) PublishAdmission(ctx context.Context, e AdmissionEvent) error {
	return p.publish(ctx, AdmissionQueue, e)
}

func (p *Publisher) PublishSecurityAlert(ctx context.Context, e SecurityAlertEvent) error {
	return p.publish(ctx, SecurityAlertQueue, e)
}

func (p *Publisher) publish(ctx context.Context, queueName string, payload any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Printf("rabbitmq: dial failed: %v", err)
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Printf("rabbitmq: channel open failed: %v", err)
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so audit messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.logger.Printf("rabbitmq: queue declare failed: %v", err)
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.logger.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
