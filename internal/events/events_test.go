package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishesToTypedAndAllChannels(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel(TransferRecorded), AllChannel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewPublisher(rdb, nil)
	p.Publish(ctx, Event{EventType: TransferRecorded, PrinterID: 4, EntityID: 9, Actor: "ops"})

	ch := sub.Channel()
	seen := map[string]Event{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case msg := <-ch:
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
			seen[msg.Channel] = ev
		case <-timeout:
			t.Fatalf("timed out, got %d messages", len(seen))
		}
	}

	assert.Equal(t, int64(9), seen[Channel(TransferRecorded)].EntityID)
	assert.Equal(t, int64(4), seen[AllChannel()].PrinterID)
	assert.False(t, seen[AllChannel()].Timestamp.IsZero())
}

func TestPublisher_NilRedisIsNoop(t *testing.T) {
	p := NewPublisher(nil, nil)
	p.Publish(context.Background(), Event{EventType: RentalCreated})
	assert.NoError(t, p.publish(context.Background(), Event{EventType: RentalCreated}))
}
