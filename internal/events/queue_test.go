package events

import (
	"math/rand"
	"testing"
	"time"
)

func TestQueue_OrdersByTimestamp(t *testing.T) {
	q := NewQueue()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Push(&MarketDataEvent{Base: Base{At: base.Add(2 * time.Hour), Prio: 1}})
	q.Push(&MarketDataEvent{Base: Base{At: base, Prio: 1}})
	q.Push(&MarketDataEvent{Base: Base{At: base.Add(time.Hour), Prio: 1}})

	var got []time.Time
	for q.Len() > 0 {
		got = append(got, q.Pop().Timestamp())
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Before(got[i-1]) {
			t.Errorf("events out of order at %d: %v before %v", i, got[i], got[i-1])
		}
	}
}

func TestQueue_TieBreaksByPriority(t *testing.T) {
	q := NewQueue()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	q.Push(&SignalEvent{Base: Base{At: at, Prio: 3}})
	q.Push(&MarketDataEvent{Base: Base{At: at, Prio: 1}})
	q.Push(&OrderEvent{Base: Base{At: at, Prio: 2}})

	wantTypes := []EventType{EventTypeMarketData, EventTypeOrder, EventTypeSignal}
	for i, want := range wantTypes {
		e := q.Pop()
		if e == nil {
			t.Fatalf("queue empty at %d", i)
		}
		if e.Type() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, e.Type())
		}
	}
}

func TestQueue_StableForEqualKeys(t *testing.T) {
	// Two events with identical (timestamp, priority) must both come
	// out; their relative order follows insertion order because Push
	// stops scanning at the first equal key.
	q := NewQueue()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &FillEvent{Base: Base{At: at, Prio: 4}, OrderID: "o1"}
	second := &FillEvent{Base: Base{At: at, Prio: 4}, OrderID: "o2"}
	q.Push(first)
	q.Push(second)

	if got := q.Pop().(*FillEvent); got.OrderID != "o1" {
		t.Errorf("expected o1 first, got %s", got.OrderID)
	}
	if got := q.Pop().(*FillEvent); got.OrderID != "o2" {
		t.Errorf("expected o2 second, got %s", got.OrderID)
	}
}

func TestQueue_EmptyBehavior(t *testing.T) {
	q := NewQueue()

	if e := q.Pop(); e != nil {
		t.Errorf("Pop on empty queue should return nil, got %v", e)
	}
	if e := q.Peek(); e != nil {
		t.Errorf("Peek on empty queue should return nil, got %v", e)
	}
	if q.Len() != 0 {
		t.Errorf("expected Len 0, got %d", q.Len())
	}
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		q.Push(&MarketDataEvent{Base: Base{At: at.Add(time.Duration(i) * time.Minute)}})
	}

	q.Clear()

	if q.Len() != 0 {
		t.Errorf("expected Len 0 after Clear, got %d", q.Len())
	}
	if e := q.Pop(); e != nil {
		t.Errorf("Pop after Clear should return nil, got %v", e)
	}
}

func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := NewQueue()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q.Push(&MarketDataEvent{Base: Base{At: at}})

	if q.Peek() == nil {
		t.Fatal("Peek returned nil on non-empty queue")
	}
	if q.Len() != 1 {
		t.Errorf("Peek must not remove: expected Len 1, got %d", q.Len())
	}
	if q.Pop() == nil {
		t.Error("Pop returned nil after Peek")
	}
}

// TestQueue_OrderingProperty checks the ordering invariant against
// randomized insertion batches from size 1 to 10,000: repeated Pop must
// yield a non-decreasing (timestamp, priority) sequence.
func TestQueue_OrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, size := range []int{1, 2, 3, 10, 100, 1000, 10000} {
		q := NewQueue()
		for i := 0; i < size; i++ {
			// Small timestamp domain forces plenty of ties.
			at := base.Add(time.Duration(rng.Intn(size/2+1)) * time.Second)
			q.Push(&MarketDataEvent{Base: Base{At: at, Prio: rng.Intn(5)}})
		}

		if q.Len() != size {
			t.Fatalf("size %d: expected Len %d, got %d", size, size, q.Len())
		}

		prev := q.Pop()
		count := 1
		for q.Len() > 0 {
			cur := q.Pop()
			if cur.Timestamp().Before(prev.Timestamp()) {
				t.Fatalf("size %d: timestamp regression at element %d", size, count)
			}
			if cur.Timestamp().Equal(prev.Timestamp()) && cur.Priority() < prev.Priority() {
				t.Fatalf("size %d: priority regression at element %d", size, count)
			}
			prev = cur
			count++
		}
		if count != size {
			t.Fatalf("size %d: drained %d events", size, count)
		}
	}
}

func BenchmarkQueue_PushMostlySorted(b *testing.B) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(&MarketDataEvent{Base: Base{At: base.Add(time.Duration(i) * time.Second)}})
	}
}
