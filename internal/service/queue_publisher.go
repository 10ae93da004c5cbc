// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/adlooper/signage-server/internal/queue"
)

// Publisher publishes domain events to a broker. A nil *Publisher is a
// no-op, so handlers can be wired without a broker (tests, minimal
// deployments).
type Publisher struct {
    URL string
}

// NewPublisher returns a publisher for the given AMQP URL, or nil when the
// URL is empty (events disabled).
func NewPublisher(url string) *Publisher {
    if url == "" {
        return nil
    }
    return &Publisher{URL: url}
}

// PublishDeviceRegistered publishes a DeviceRegisteredEvent to the
// "device.registered" queue.
func (p *Publisher) PublishDeviceRegistered(ctx context.Context, event q.DeviceRegisteredEvent) error {
    return p.publish(ctx, "device.registered", event)
}

// PublishMediaUploaded publishes a MediaUploadedEvent to the
// "media.uploaded" queue.
func (p *Publisher) PublishMediaUploaded(ctx context.Context, event q.MediaUploadedEvent) error {
    return p.publish(ctx, "media.uploaded", event)
}

// publish dials the broker, declares the durable queue and sends one
// persistent JSON message. The function never panics; any error is logged
// and returned so the caller can choose to ignore it.
func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
    if p == nil {
        return nil
    }
    conn, err := amqp.Dial(p.URL)
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

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        queueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
