// Package changefeed announces persisted changes to interested listeners such
// as the device sync worker.
package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

type Change struct {
	Entity string    `json:"entity"`
	ID     uuid.UUID `json:"id"`
	Op     Op        `json:"op"`
	At     time.Time `json:"at"`
}

// Notifier is fire-and-forget: implementations must not block the caller and
// never report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

type Noop struct{}

func (Noop) Notify(context.Context, Change) {}

// Publisher is the subset of redis.UniversalClient used for publishing.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

const publishTimeout = 2 * time.Second

type Redis struct {
	client  Publisher
	channel string
}

func NewRedis(client Publisher, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Notify(ctx context.Context, c Change) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	payload, err := json.Marshal(c)
	if err != nil {
		slog.Error("failed to encode change", "entity", c.Entity, "id", c.ID, "error", err)
		return
	}

	// Detached from the request so a finished handler does not cancel delivery.
	ctx = context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
			slog.Error("failed to publish change", "entity", c.Entity, "id", c.ID, "error", err)
		}
	}()
}
