package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg := Message{Type: "registration", UserID: 2, EventID: 7, Title: "Art Exhibition", At: time.Now().UTC()}
	require.NoError(t, q.Publish(ctx, msg))

	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case got := <-messages:
		assert.Equal(t, msg.Type, got.Type)
		assert.Equal(t, msg.EventID, got.EventID)
		assert.Equal(t, msg.Title, got.Title)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemory_PublishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := NewInMemory(0)
	err := q.Publish(ctx, Message{Type: "registration"})
	assert.ErrorIs(t, err, context.Canceled)
}
