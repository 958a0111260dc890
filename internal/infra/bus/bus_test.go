package bus_test

import (
	"testing"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := bus.New()
	defer b.Close()

	ch, cancel := b.Subscribe(bus.TopicGoalsUpdated)
	defer cancel()

	b.Publish(bus.Event{Topic: bus.TopicGoalsUpdated, User: "user@example.com"})

	select {
	case e := <-ch:
		assert.Equal(t, bus.TopicGoalsUpdated, e.Topic)
		assert.Equal(t, "user@example.com", e.User)
		assert.False(t, e.At.IsZero(), "Publish must stamp At")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestTopicFilter(t *testing.T) {
	b := bus.New()
	defer b.Close()

	ch, cancel := b.Subscribe(bus.TopicBudgetsUpdated)
	defer cancel()

	b.Publish(bus.Event{Topic: bus.TopicGoalsUpdated})
	b.Publish(bus.Event{Topic: bus.TopicBudgetsUpdated})

	e := <-ch
	assert.Equal(t, bus.TopicBudgetsUpdated, e.Topic)

	select {
	case extra, ok := <-ch:
		if ok {
			t.Fatalf("unexpected extra event: %v", extra.Topic)
		}
	default:
	}
}

func TestSubscribeAllTopics(t *testing.T) {
	b := bus.New()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(bus.Event{Topic: bus.TopicGoalsUpdated})
	b.Publish(bus.Event{Topic: bus.TopicPreferencesChanged})

	first := <-ch
	second := <-ch
	assert.Equal(t, bus.TopicGoalsUpdated, first.Topic)
	assert.Equal(t, bus.TopicPreferencesChanged, second.Topic)
}

func TestCancelClosesChannel(t *testing.T) {
	b := bus.New()
	defer b.Close()

	ch, cancel := b.Subscribe(bus.TopicGoalsUpdated)
	cancel()

	_, ok := <-ch
	require.False(t, ok, "channel must be closed after cancel")

	// Publishing after cancel must not panic.
	b.Publish(bus.Event{Topic: bus.TopicGoalsUpdated})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := bus.New()
	defer b.Close()

	_, cancel := b.Subscribe(bus.TopicGoalsUpdated)
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Far more events than the subscriber buffer holds; the overflow
		// is dropped, publish never blocks.
		for i := 0; i < 1000; i++ {
			b.Publish(bus.Event{Topic: bus.TopicGoalsUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestClose(t *testing.T) {
	b := bus.New()
	ch, _ := b.Subscribe(bus.TopicGoalsUpdated)

	b.Close()

	_, ok := <-ch
	assert.False(t, ok, "close must close subscriber channels")

	// Subscribe after close yields a closed channel.
	ch2, cancel := b.Subscribe()
	cancel()
	_, ok = <-ch2
	assert.False(t, ok)
}
