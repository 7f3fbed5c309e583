package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidDueTime = errors.New("scheduler: invalid due time")
	ErrMissingID      = errors.New("scheduler: delivery has no appointment id")
	ErrStopped        = errors.New("scheduler: engine stopped")
)

// Delivery is one reminder waiting to go out. Due is copied back to the
// consumer so it can tell a delivery from one that has since been
// rescheduled.
type Delivery struct {
	AppointmentID string
	Due           time.Time
}

type queueItem struct {
	delivery Delivery
	seq      uint64
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if !a.delivery.Due.Equal(b.delivery.Due) {
		return a.delivery.Due.Before(b.delivery.Due)
	}
	return a.seq < b.seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// Engine is a timer heap holding at most one pending delivery per
// appointment. Due deliveries are handed to C one at a time; a lagging
// consumer holds back the heap rather than losing deliveries.
type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	seq     uint64
	out     chan Delivery
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		out:    make(chan Delivery, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Delivery {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues d, replacing any delivery already queued for the same
// appointment.
func (e *Engine) Schedule(d Delivery) error {
	if d.AppointmentID == "" {
		return ErrMissingID
	}
	if d.Due.IsZero() {
		return ErrInvalidDueTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	e.removeLocked(d.AppointmentID)
	e.seq++
	heap.Push(&e.queue, queueItem{delivery: d, seq: e.seq})
	e.signalWakeup()
	return nil
}

// Cancel drops the queued delivery for id and reports whether one existed.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := e.removeLocked(id)
	if removed {
		e.signalWakeup()
	}
	return removed
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) removeLocked(id string) bool {
	kept := e.queue[:0]
	removed := false
	for _, item := range e.queue {
		if item.delivery.AppointmentID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if removed {
		e.queue = kept
		heap.Init(&e.queue)
	}
	return removed
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.Due)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for {
				d, ok := e.popDue(time.Now())
				if !ok {
					break
				}
				select {
				case e.out <- d:
				case <-e.stopCh:
					return
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Delivery, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Delivery{}, false
	}
	return e.queue[0].delivery, true
}

// popDue takes the earliest delivery due by now. Popping one at a time
// keeps the rest cancellable while the consumer is busy.
func (e *Engine) popDue(now time.Time) (Delivery, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 || e.queue[0].delivery.Due.After(now) {
		return Delivery{}, false
	}
	return heap.Pop(&e.queue).(queueItem).delivery, true
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
