package badge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEarlySubscriberReceives_LateDoesNot(t *testing.T) {
	n := New()

	var early []Event
	unsub := n.Subscribe(func(ev Event) { early = append(early, ev) })
	defer unsub()

	n.Publish(Event{Count: 3})

	var late []Event
	unsubLate := n.Subscribe(func(ev Event) { late = append(late, ev) })
	defer unsubLate()

	assert.Equal(t, []Event{{Count: 3}}, early)
	assert.Empty(t, late, "late subscriber must not see earlier events")
}

func TestUnsubscribe(t *testing.T) {
	n := New()
	calls := 0
	unsub := n.Subscribe(func(Event) { calls++ })
	require.Equal(t, 1, n.Len())

	unsub()
	unsub()
	n.PublishCount(5)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, n.Len())
}

func TestListen_DeliversAndCancels(t *testing.T) {
	n := New()
	ch, cancel := n.Listen(4)

	n.PublishCount(1)
	n.PublishCount(2)

	select {
	case ev := <-ch:
		assert.Equal(t, 1, ev.Count)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	assert.Equal(t, 2, (<-ch).Count)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open, "channel should be closed after cancel")
	assert.Equal(t, 0, n.Len())

	assert.NotPanics(t, func() { n.PublishCount(9) })
}

func TestListen_FullBufferKeepsLatest(t *testing.T) {
	n := New()
	ch, cancel := n.Listen(1)
	defer cancel()

	n.PublishCount(1)
	n.PublishCount(2)
	n.PublishCount(3)

	assert.Equal(t, 3, (<-ch).Count)
	select {
	case ev := <-ch:
		t.Fatalf("expected stale events dropped, got %+v", ev)
	default:
	}
}

func TestListen_BurstEndsOnLatest(t *testing.T) {
	n := New()
	ch, cancel := n.Listen(4)
	defer cancel()

	for i := 1; i <= 10; i++ {
		n.PublishCount(i)
	}

	var got []int
	for len(ch) > 0 {
		got = append(got, (<-ch).Count)
	}
	assert.Equal(t, []int{7, 8, 9, 10}, got)
}

func TestPublish_Concurrent(t *testing.T) {
	n := New()
	var mu sync.Mutex
	total := 0
	unsub := n.Subscribe(func(ev Event) {
		mu.Lock()
		total += ev.Count
		mu.Unlock()
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.PublishCount(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, total)
}
