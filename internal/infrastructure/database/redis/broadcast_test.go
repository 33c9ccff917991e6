package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationBroadcaster_PublishSubscribe(t *testing.T) {
	client, _ := newTestClient(t)
	b := NewGenerationBroadcaster(client, nil)
	assert.Equal(t, "test:models:generation", b.Channel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	require.NoError(t, b.Subscribe(ctx, func(_ context.Context, id string) { got <- id }))
	require.NoError(t, b.PublishGeneration(ctx, "gen-1"))

	select {
	case id := <-got:
		assert.Equal(t, "gen-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("generation broadcast not delivered")
	}
}

func TestGenerationBroadcaster_ClosedClient(t *testing.T) {
	client, _ := newTestClient(t)
	b := NewGenerationBroadcaster(client, nil)
	require.NoError(t, client.Close())
	assert.Equal(t, ErrClientClosed, b.PublishGeneration(context.Background(), "x"))
}
