package realtime

import "sync"

// serialQueue runs queued functions one at a time in FIFO order.
//
// enqueue only records the function, so it is safe to call while holding
// the manager's state lock; drain runs everything queued so far. The
// goroutine that finds the queue idle drains it and concurrent callers
// return immediately, which keeps handler callbacks serialized. A drain
// from inside a running function returns at once and the outer loop picks
// up whatever was queued.
type serialQueue struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
}

func (q *serialQueue) enqueue(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

func (q *serialQueue) drain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.run(next)
	}
}

// run executes fn, releasing the drain role if fn panics so a recovered
// panic higher up does not leave the queue stuck.
func (q *serialQueue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
			panic(r)
		}
	}()
	fn()
}
