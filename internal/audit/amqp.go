package audit

import (
    "context"
    "encoding/json"
    "log"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/zentro/zentro-api/internal/model"
)

// AMQPRecorder publishes audit entries to a durable RabbitMQ queue.
// The connection is opened lazily on first use and reopened after broker
// failures. The function attempts to be robust and to never panic; any
// error is logged and returned so the caller can choose to ignore it.
// Messages are marked as persistent.
type AMQPRecorder struct {
    URL   string
    Queue string

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewAMQPRecorder returns a recorder publishing to the named queue.
func NewAMQPRecorder(url, queue string) *AMQPRecorder {
    return &AMQPRecorder{URL: url, Queue: queue}
}

// channel returns an open channel, dialing and declaring the queue when
// needed. Callers hold r.mu.
func (r *AMQPRecorder) channel() (*amqp.Channel, error) {
    if r.ch != nil && !r.conn.IsClosed() {
        return r.ch, nil
    }
    conn, err := amqp.Dial(r.URL)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    // Durable so entries survive broker restarts.
    if _, err := ch.QueueDeclare(r.Queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    r.conn, r.ch = conn, ch
    return ch, nil
}

// Record publishes the entry as persistent JSON on the default exchange.
func (r *AMQPRecorder) Record(ctx context.Context, e model.AuditEntry) error {
    body, err := json.Marshal(e)
    if err != nil {
        log.Printf("audit: marshal entry failed: %v", err)
        return err
    }

    r.mu.Lock()
    defer r.mu.Unlock()

    ch, err := r.channel()
    if err != nil {
        log.Printf("audit: broker unavailable: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", r.Queue, false, false, pub); err != nil {
        log.Printf("audit: publish failed: %v", err)
        // Drop the broken channel; the next Record redials.
        _ = r.ch.Close()
        _ = r.conn.Close()
        r.conn, r.ch = nil, nil
        return err
    }
    return nil
}

// Close releases the broker connection.
func (r *AMQPRecorder) Close() {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.ch != nil {
        _ = r.ch.Close()
    }
    if r.conn != nil {
        _ = r.conn.Close()
    }
    r.conn, r.ch = nil, nil
}
