package events

import "sync"

type pendingEvent struct {
	event Event
	next  *pendingEvent
}

// pendingQueue keeps envelopes in publish order until the writer takes them.
// Once limit is reached the oldest envelope is evicted.
type pendingQueue struct {
	mu      sync.Mutex
	first   *pendingEvent
	last    *pendingEvent
	len     int
	limit   int
	dropped int
}

func newPendingQueue(limit int) *pendingQueue {
	return &pendingQueue{limit: limit}
}

// push appends e and returns the envelope it evicted, if any.
func (q *pendingQueue) push(e Event) (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		evicted Event
		full    = q.limit > 0 && q.len >= q.limit
	)
	if full {
		evicted = q.first.event
		q.removeFirst()
		q.dropped++
	}

	node := &pendingEvent{event: e}
	if q.last == nil {
		q.first = node
	} else {
		q.last.next = node
	}
	q.last = node
	q.len++

	return evicted, full
}

func (q *pendingQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.first == nil {
		return Event{}, false
	}
	e := q.first.event
	q.removeFirst()
	return e, true
}

func (q *pendingQueue) removeFirst() {
	q.first = q.first.next
	if q.first == nil {
		q.last = nil
	}
	q.len--
}

func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len
}

// Dropped is the number of envelopes evicted since the queue was built.
func (q *pendingQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
