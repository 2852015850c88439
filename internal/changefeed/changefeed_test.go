package changefeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/colmado/internal/changefeed"
)

type fakePublisher struct {
	channel  chan string
	payloads chan []byte
	err      error
}

func newFakePublisher(err error) *fakePublisher {
	return &fakePublisher{
		channel:  make(chan string, 1),
		payloads: make(chan []byte, 1),
		err:      err,
	}
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel <- channel
	f.payloads <- message.([]byte)

	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}

	return cmd
}

func TestRedis_Notify(t *testing.T) {
	pub := newFakePublisher(nil)
	id := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	changefeed.NewRedis(pub, "colmado:changes").Notify(ctx, changefeed.Change{
		Entity: "card_settlement",
		ID:     id,
		Op:     changefeed.OpCreate,
	})
	cancel()

	select {
	case ch := <-pub.channel:
		assert.Equal(t, "colmado:changes", ch)
	case <-time.After(time.Second):
		t.Fatal("change was not published")
	}

	var got changefeed.Change
	require.NoError(t, json.Unmarshal(<-pub.payloads, &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "card_settlement", got.Entity)
	assert.False(t, got.At.IsZero())
}

func TestRedis_Notify_PublishErrorIsSwallowed(t *testing.T) {
	pub := newFakePublisher(errors.New("connection refused"))

	assert.NotPanics(t, func() {
		changefeed.NewRedis(pub, "c").Notify(context.Background(), changefeed.Change{Entity: "product"})
	})

	select {
	case <-pub.channel:
	case <-time.After(time.Second):
		t.Fatal("publish was not attempted")
	}
}
