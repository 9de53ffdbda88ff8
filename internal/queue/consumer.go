package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ActivityLogName is the file the consumer appends to inside its log
// directory.
const ActivityLogName = "activity.log"

// Consumer reads the activity queue and writes one line per event to
// <dir>/activity.log.
type Consumer struct {
	url    string
	dir    string
	logger *slog.Logger
}

// NewConsumer returns a Consumer for the given broker URL and log
// directory.  An empty dir defaults to "logs".
func NewConsumer(url, dir string, logger *slog.Logger) *Consumer {
	if dir == "" {
		dir = "logs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{url: url, dir: dir, logger: logger}
}

// Run connects to RabbitMQ, declares the activity queue and consumes
// messages until ctx is cancelled.  Broker failures are retried with
// exponential backoff capped at 30s; a message that cannot be handled
// is rejected without requeue so the loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("activity-consumer: failed to dial broker",
				slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("activity-consumer: consume loop ended; reconnecting", slog.Any("error", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("activity-consumer: set QoS failed", slog.Any("error", err))
	}
	if _, err := ch.QueueDeclare(ActivityQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ActivityQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(d.Body); err != nil {
				c.logger.Error("activity-consumer: handle message failed", slog.Any("error", err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends it to the activity log.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev ActivityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, ActivityLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as a single human-friendly log line ending in
// a newline.
func FormatEvent(ev ActivityEvent) string {
	switch ev.Type {
	case AttendanceJoined:
		return fmt.Sprintf("[%s] Player joined | session_id=%s | session=%q | attendance_id=%s | player=%q | attendees=%d/%d\n",
			ev.OccurredAt, ev.SessionID, ev.SessionTitle, ev.AttendanceID, ev.PlayerName, ev.Attendees, ev.Capacity)
	case AttendanceLeft:
		return fmt.Sprintf("[%s] Player left | session_id=%s | session=%q | attendance_id=%s | player=%q | removed_by=%s | attendees=%d/%d\n",
			ev.OccurredAt, ev.SessionID, ev.SessionTitle, ev.AttendanceID, ev.PlayerName, ev.RemovedBy, ev.Attendees, ev.Capacity)
	default:
		return fmt.Sprintf("[%s] %s | session_id=%s | session=%q | type=%s | attendees=%d\n",
			ev.OccurredAt, describe(ev.Type), ev.SessionID, ev.SessionTitle, ev.SessionType, ev.Attendees)
	}
}

func describe(t string) string {
	switch t {
	case SessionCreated:
		return "Session created"
	case SessionUpdated:
		return "Session updated"
	case SessionDeleted:
		return "Session deleted"
	}
	return t
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
