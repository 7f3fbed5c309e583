package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yigitselcuk/apptcal/internal/model"
)

// Mirror copies appointments into an external calendar. Upsert returns the
// external reference when the mirror assigns one.
type Mirror interface {
	Name() string
	Upsert(ctx context.Context, a model.Appointment) (string, error)
	Delete(ctx context.Context, a model.Appointment) error
}

type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Upsert(context.Context, model.Appointment) (string, error) { return "", nil }

func (Noop) Delete(context.Context, model.Appointment) error { return nil }

// Syncer runs mirror calls in the background, one at a time per
// appointment and in the order they were requested. References learned
// from an upsert are reused by later calls for the same appointment, so an
// update or delete queued behind the first insert reaches the same external
// event. Failures are logged as *model.MirrorSyncError and never reach the
// caller.
type Syncer struct {
	mirror  Mirror
	logger  *zap.Logger
	timeout time.Duration
	onRef   func(id, ref string)
	wg      sync.WaitGroup

	mu    sync.Mutex
	lanes map[string][]job
	refs  map[string]string
}

type job struct {
	op string
	a  model.Appointment
}

func NewSyncer(m Mirror, logger *zap.Logger, onRef func(id, ref string)) *Syncer {
	if m == nil {
		m = Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		mirror:  m,
		logger:  logger.Named("mirror"),
		timeout: 30 * time.Second,
		onRef:   onRef,
		lanes:   make(map[string][]job),
		refs:    make(map[string]string),
	}
}

// Upsert mirrors a. When the mirror reports a reference different from the
// one it was given, onRef is called with it.
func (s *Syncer) Upsert(a model.Appointment) {
	s.enqueue(job{op: "upsert", a: a.Clone()})
}

func (s *Syncer) Delete(a model.Appointment) {
	s.enqueue(job{op: "delete", a: a.Clone()})
}

// Wait blocks until every queued call has finished.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func (s *Syncer) enqueue(j job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, running := s.lanes[j.a.ID]
	s.lanes[j.a.ID] = append(q, j)
	if !running {
		s.wg.Add(1)
		go s.drain(j.a.ID)
	}
}

func (s *Syncer) drain(id string) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		q := s.lanes[id]
		if len(q) == 0 {
			delete(s.lanes, id)
			s.mu.Unlock()
			return
		}
		j := q[0]
		s.lanes[id] = q[1:]
		if j.a.GoogleEventID == "" {
			j.a.GoogleEventID = s.refs[id]
		}
		s.mu.Unlock()

		if err := s.do(j); err != nil {
			serr := &model.MirrorSyncError{Op: j.op, ID: id, Err: err}
			s.logger.Warn("mirror sync failed", zap.String("mirror", s.mirror.Name()), zap.Error(serr))
		}
	}
}

func (s *Syncer) do(j job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	id := j.a.ID

	if j.op == "delete" {
		err := s.mirror.Delete(ctx, j.a)
		if err == nil {
			s.mu.Lock()
			delete(s.refs, id)
			s.mu.Unlock()
		}
		return err
	}

	ref, err := s.mirror.Upsert(ctx, j.a)
	if err != nil {
		return err
	}
	if ref == "" {
		return nil
	}
	s.mu.Lock()
	s.refs[id] = ref
	s.mu.Unlock()
	if ref != j.a.GoogleEventID && s.onRef != nil {
		s.onRef(id, ref)
	}
	return nil
}
