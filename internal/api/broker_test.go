package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourney/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(TopicRuns)
	other := b.Subscribe("elsewhere")

	evt := model.RunEvent{Type: model.EventRunCompleted, Data: map[string]any{"x": 1}}
	b.Publish(TopicRuns, evt)

	select {
	case got := <-ch:
		assert.Equal(t, evt.Type, got.Type)
		assert.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-other:
		t.Fatalf("unexpected event on other topic: %+v", got)
	default:
	}

	b.Unsubscribe(TopicRuns, ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// second unsubscribe is a no-op
	b.Unsubscribe(TopicRuns, ch)
	b.Unsubscribe("elsewhere", other)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(TopicRuns)
	defer b.Unsubscribe(TopicRuns, ch)
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish(TopicRuns, model.RunEvent{Type: model.EventRunStarted})
	}
	assert.Len(t, ch, cap(ch))
}

func TestRedisBrokerConfig(t *testing.T) {
	_, err := NewRedisBroker("not a url", nil)
	require.Error(t, err)
	b, err := NewRedisBroker("redis://localhost:6379/0", nil)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()
	assert.Equal(t, "tourney:runs", chanName(TopicRuns))
}
