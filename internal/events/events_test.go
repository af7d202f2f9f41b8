package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversToSubscriber(t *testing.T) {
	s := NewSubject(WithSyncDelivery())
	defer Complete(s)

	got := make(chan string, 1)
	sub := Subscribe[string](s, "topic.a", func(_ context.Context, msg string) error {
		got <- msg
		return nil
	})
	defer sub.Unsubscribe()

	require.NoError(t, Emit(s, "topic.a", "hello"))

	select {
	case msg := <-got:
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewSubject(WithSyncDelivery())
	defer Complete(s)

	got := make(chan string, 1)
	sub := Subscribe[string](s, "topic.b", func(_ context.Context, msg string) error {
		got <- msg
		return nil
	})
	sub.Unsubscribe()

	require.NoError(t, Emit(s, "topic.b", "ignored"))

	select {
	case <-got:
		t.Fatal("unexpected delivery after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCDPClientTopicIsPerClient(t *testing.T) {
	assert.NotEqual(t, CDPClientTopic("a"), CDPClientTopic("b"))
	assert.Equal(t, CDPClientTopic("a"), CDPClientTopic("a"))
}
