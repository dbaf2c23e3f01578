package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// MessagePublisher delivers one raw outbox message.
type MessagePublisher interface {
	PublishRaw(ctx context.Context, topic string, body []byte) error
}

// PublishRaw sends an already-encoded outbox payload, tagging the message
// with its topic.
func (p *AMQPPublisher) PublishRaw(ctx context.Context, topic string, body []byte) error {
	return p.channel.PublishWithContext(ctx,
		"",
		p.queue.Name,
		false,
		false,
		amqpPublishing(topic, body),
	)
}

// Relay drains the transactional outbox to the message broker. Rows are
// claimed with SKIP LOCKED so multiple relay instances never double-send;
// a row that keeps failing is parked as dead after maxAttempts.
type Relay struct {
	pool        *pgxpool.Pool
	pub         MessagePublisher
	log         *logrus.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewRelay(pool *pgxpool.Pool, pub MessagePublisher, log *logrus.Logger) *Relay {
	return &Relay{
		pool:        pool,
		pub:         pub,
		log:         log,
		interval:    2 * time.Second,
		batchSize:   50,
		maxAttempts: 5,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				r.log.WithError(err).Warn("outbox drain failed")
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("notify: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
        SELECT id, topic, payload, attempts
        FROM outbox
        WHERE status = 'pending'
        ORDER BY created_at
        LIMIT $1
        FOR UPDATE SKIP LOCKED
    `, r.batchSize)
	if err != nil {
		return fmt.Errorf("notify: select outbox: %w", err)
	}

	type message struct {
		id       string
		topic    string
		body     []byte
		attempts int
	}
	var batch []message
	for rows.Next() {
		var m message
		if err := rows.Scan(&m.id, &m.topic, &m.body, &m.attempts); err != nil {
			rows.Close()
			return fmt.Errorf("notify: scan outbox row: %w", err)
		}
		batch = append(batch, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("notify: outbox rows: %w", err)
	}

	for _, m := range batch {
		if err := r.pub.PublishRaw(ctx, m.topic, m.body); err != nil {
			status := "pending"
			if m.attempts+1 >= r.maxAttempts {
				status = "dead"
			}
			if _, uerr := tx.Exec(ctx, `UPDATE outbox SET attempts = attempts + 1, status = $2 WHERE id = $1`, m.id, status); uerr != nil {
				return fmt.Errorf("notify: mark failed message: %w", uerr)
			}
			r.log.WithError(err).WithField("topic", m.topic).Warn("outbox publish failed")
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE outbox SET status = 'processed' WHERE id = $1`, m.id); err != nil {
			return fmt.Errorf("notify: mark processed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("notify: commit drain: %w", err)
	}
	return nil
}
