// Package queue publishes and consumes booking confirmation messages
// over RabbitMQ.  Delivery is best effort from the caller's point of
// view: errors are logged and returned so callers can ignore failures
// without interrupting the main request flow.
package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/stagepass/event-ticketing/internal/service"
)

const confirmedQueueName = "booking.confirmed"

// Publisher publishes booking confirmations to the booking.confirmed
// queue.  It dials per publish; confirmations are low-volume and a
// fresh connection keeps the publisher robust against broker restarts
// without connection management.
type Publisher struct {
    url string
}

// NewPublisher returns a Publisher that dials the given AMQP URL.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url}
}

// BookingConfirmed publishes the notification as a persistent JSON
// message.  The queue is declared durable on every publish, which is
// idempotent, so publisher and consumer can start in any order.
func (p *Publisher) BookingConfirmed(ctx context.Context, n service.BookingNotification) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        confirmedQueueName, // name
        true,               // durable
        false,              // autoDelete
        false,              // exclusive
        false,              // noWait
        nil,                // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(n)
    if err != nil {
        log.Printf("rabbitmq: marshal notification failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", confirmedQueueName, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
