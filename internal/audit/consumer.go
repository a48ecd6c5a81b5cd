package audit

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/zentro/zentro-api/internal/model"
)

// StartConsumer connects to RabbitMQ, declares the audit queue (durable),
// and starts consuming entries. Each entry is appended to the log file in
// a single-line format. The function runs a reconnect loop with capped
// exponential backoff; it keeps running and logs any processing errors
// while rejecting the offending message so the server continues operating.
// Run it on its own goroutine.
func StartConsumer(url, queue, logFile string) {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn, queue, logFile); err != nil {
            log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
        }
    }
}

func consumeLoop(conn *amqp.Connection, queue, logFile string) error {
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("audit-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := appendEntry(logFile, d.Body); err != nil {
            log.Printf("audit-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func appendEntry(logFile string, body []byte) error {
    var e model.AuditEntry
    if err := json.Unmarshal(body, &e); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if dir := filepath.Dir(logFile); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return fmt.Errorf("mkdir %s: %w", dir, err)
        }
    }
    f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("%s | %s | %s | %s | %d | %.2fms | ip=%s\n",
        e.At.UTC().Format(time.RFC3339), e.Actor, e.Action, e.Outcome, e.Status, e.DurationMS, e.IP)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
