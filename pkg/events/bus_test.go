package events

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type named string

func (n named) Name() string { return string(n) }

func TestPublishDeliversByName(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe("a", func(e Event) { got = append(got, "a:"+e.Name()) })
	b.Subscribe(All, func(e Event) { got = append(got, "*:"+e.Name()) })

	b.Publish(named("a"))
	b.Publish(named("b"))

	want := []string{"a:a", "*:a", "*:b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("deliveries mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedPublishIsQueued(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe("first", func(Event) {
		got = append(got, "first:begin")
		b.Publish(named("second"))
		got = append(got, "first:end")
	})
	b.Subscribe("first", func(Event) { got = append(got, "first:other") })
	b.Subscribe("second", func(Event) { got = append(got, "second") })

	b.Publish(named("first"))

	want := []string{"first:begin", "first:end", "first:other", "second"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("delivery order mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	var n int
	unsubscribe := b.Subscribe("x", func(Event) { n++ })
	b.Publish(named("x"))
	unsubscribe()
	unsubscribe()
	b.Publish(named("x"))
	if n != 1 {
		t.Errorf("handler ran %d times, want 1", n)
	}
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	b := NewBus()
	var late int
	var unsubLate func()
	b.Subscribe("x", func(Event) { unsubLate() })
	unsubLate = b.Subscribe("x", func(Event) { late++ })

	b.Publish(named("x"))
	if late != 0 {
		t.Errorf("removed handler ran %d times", late)
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	counts := map[string]int{}
	b.Subscribe(All, func(e Event) {
		mu.Lock()
		counts[e.Name()]++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				b.Publish(named("tick"))
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if counts["tick"] != 800 {
		t.Errorf("delivered %d events, want 800", counts["tick"])
	}
}
