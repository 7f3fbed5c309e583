package conflict

import (
	"time"

	"github.com/yigitselcuk/apptcal/internal/timerange"
)

const DefaultDelay = 300 * time.Millisecond

// Request is one pending conflict check. Seq increases with every edit.
type Request struct {
	Seq       uint64
	Candidate timerange.TimeRange
	Scope     Scope
}

// Debouncer collapses bursts of draft edits into one check. It holds no
// timers: the caller arms one per Touch and hands the sequence back to Fire
// when it elapses. Not safe for concurrent use; it lives on the event loop.
type Debouncer struct {
	Delay time.Duration

	seq     uint64
	pending *Request
	issued  uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{Delay: delay}
}

// Touch records an edit and returns the request that supersedes every
// earlier one.
func (d *Debouncer) Touch(candidate timerange.TimeRange, scope Scope) Request {
	d.seq++
	r := Request{Seq: d.seq, Candidate: candidate, Scope: scope}
	d.pending = &r
	return r
}

// Fire reports whether the timer armed for seq should issue its request.
// Only the latest pending edit fires, and only once.
func (d *Debouncer) Fire(seq uint64) (Request, bool) {
	if d.pending == nil || d.pending.Seq != seq {
		return Request{}, false
	}
	r := *d.pending
	d.pending = nil
	d.issued = r.Seq
	return r, true
}

// Accept reports whether a result for seq may be applied. A result is
// discarded once a newer edit has been made.
func (d *Debouncer) Accept(seq uint64) bool {
	return seq == d.seq && seq == d.issued
}

// Cancel drops any pending edit and invalidates in-flight results.
func (d *Debouncer) Cancel() {
	d.seq++
	d.pending = nil
}

func (d *Debouncer) Seq() uint64 { return d.seq }
