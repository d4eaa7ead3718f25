package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeNotification, Data: "hello"})

	e := <-ch
	assert.Equal(t, TypeNotification, e.Type)
	assert.Equal(t, "hello", e.Data)
	assert.False(t, e.Time.IsZero())
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})

	e := <-ch
	assert.Equal(t, "a", e.Type)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %q", extra.Type)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()

	_, ok := <-ch
	require.False(t, ok)
	assert.NotPanics(t, func() { b.Publish(Event{Type: "late"}) })
}

func TestBus_PublishWhileUnsubscribing(t *testing.T) {
	b := New()
	for i := 0; i < 200; i++ {
		_, unsub := b.Subscribe(1)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Publish(Event{Type: TypePostingStatus})
		}()
		go func() {
			defer wg.Done()
			unsub()
		}()
		wg.Wait()
	}
}
