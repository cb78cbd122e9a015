package events

// Queue is an ordered event buffer. For any two positions i < j,
// either queue[i] has the earlier timestamp, or the timestamps are
// equal and queue[i].Priority() <= queue[j].Priority().
//
// Insertion scans backward from the tail: a backtest replays mostly
// pre-sorted historical data with synthetic events injected near the
// simulated "now", so the scan terminates after a handful of steps in
// the common case and the ordering invariant stays auditable by
// inspection. A workload with heavy out-of-order injection should
// substitute a heap with the identical tie-break rule.
//
// Queue is not safe for concurrent use. Parallel engines must each own
// a private queue.
type Queue struct {
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{events: make([]Event, 0, 1024)}
}

// Push inserts e at the position that preserves ordering. It never
// rejects an event; capacity is unbounded.
func (q *Queue) Push(e Event) {
	i := len(q.events)
	for i > 0 {
		prev := q.events[i-1]
		if e.Timestamp().After(prev.Timestamp()) {
			break
		}
		if e.Timestamp().Equal(prev.Timestamp()) && e.Priority() >= prev.Priority() {
			break
		}
		i--
	}

	q.events = append(q.events, nil)
	copy(q.events[i+1:], q.events[i:])
	q.events[i] = e
}

// Pop removes and returns the earliest-ordered event, or nil when the
// queue is empty. An empty queue is a normal state, not an error.
func (q *Queue) Pop() Event {
	if len(q.events) == 0 {
		return nil
	}
	e := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return e
}

// Peek returns the earliest-ordered event without removing it, or nil
// when the queue is empty. Drivers use it to compare the next event's
// timestamp against a simulated clock before consuming.
func (q *Queue) Peek() Event {
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Clear removes all events.
func (q *Queue) Clear() {
	for i := range q.events {
		q.events[i] = nil
	}
	q.events = q.events[:0]
}
