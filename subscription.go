package gatewire

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantrail/gatewire/internal/bus"
	"github.com/quantrail/gatewire/internal/protocol"
)

// Subscription is the caller-facing handle over one routed reply stream.
//
// Lifecycle: active until the stream's terminal sentinel, an explicit
// Cancel, or a terminal transport error. Cancel is idempotent: the cancel
// wire message is sent at most once per logical subscription no matter how
// many handles call it or how often. Callers that never drain a stream to
// its end should `defer sub.Cancel()`.
type Subscription struct {
	mu       sync.Mutex
	queue    *bus.Queue // direct source until cloned
	bc       *broadcaster
	sink     *bus.Queue // per-handle sink once cloned
	terminal protocol.IncomingKind

	cancelled atomic.Bool
	finished  atomic.Bool
	cancel    func() error
}

func newSubscription(q *bus.Queue, terminal protocol.IncomingKind, cancel func() error) *Subscription {
	return &Subscription{queue: q, terminal: terminal, cancel: cancel}
}

func (s *Subscription) src() (<-chan bus.Reply, func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		return s.sink.Out(), s.sink.Err
	}
	return s.queue.Out(), s.queue.Err
}

func (s *Subscription) observe(r Reply) {
	if s.terminal != 0 && r.Kind == s.terminal {
		s.finished.Store(true)
	}
}

// Next blocks until a message, a terminal error, or closure. io.EOF marks a
// cleanly finished stream.
func (s *Subscription) Next() (Reply, error) {
	if s.finished.Load() {
		return Reply{}, io.EOF
	}
	out, errf := s.src()
	r, ok := <-out
	if !ok {
		if err := errf(); err != nil {
			return Reply{}, err
		}
		return Reply{}, io.EOF
	}
	s.observe(r)
	return r, nil
}

// TryNext returns immediately; ok is false when nothing is queued.
func (s *Subscription) TryNext() (r Reply, ok bool, err error) {
	if s.finished.Load() {
		return Reply{}, false, io.EOF
	}
	out, errf := s.src()
	select {
	case r, open := <-out:
		if !open {
			if err := errf(); err != nil {
				return Reply{}, false, err
			}
			return Reply{}, false, io.EOF
		}
		s.observe(r)
		return r, true, nil
	default:
		return Reply{}, false, nil
	}
}

// NextTimeout blocks up to d.
func (s *Subscription) NextTimeout(d time.Duration) (Reply, error) {
	if s.finished.Load() {
		return Reply{}, io.EOF
	}
	out, errf := s.src()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case r, ok := <-out:
		if !ok {
			if err := errf(); err != nil {
				return Reply{}, err
			}
			return Reply{}, io.EOF
		}
		s.observe(r)
		return r, nil
	case <-timer.C:
		return Reply{}, ErrTimeout
	}
}

// NextCtx blocks until a message arrives or ctx ends.
func (s *Subscription) NextCtx(ctx context.Context) (Reply, error) {
	if s.finished.Load() {
		return Reply{}, io.EOF
	}
	out, errf := s.src()
	select {
	case r, ok := <-out:
		if !ok {
			if err := errf(); err != nil {
				return Reply{}, err
			}
			return Reply{}, io.EOF
		}
		s.observe(r)
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Chan exposes the stream for select-based consumption. After the channel
// closes, Err distinguishes clean closure from failure.
func (s *Subscription) Chan() <-chan bus.Reply {
	out, _ := s.src()
	return out
}

// Err returns the terminal error observed by this handle, if any.
func (s *Subscription) Err() error {
	_, errf := s.src()
	return errf()
}

// Cancel sends the kind-appropriate cancel message exactly once and closes
// this handle. For cloned subscriptions the upstream cancel fires only when
// the last clone is cancelled.
func (s *Subscription) Cancel() error {
	if !s.cancelled.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	bc, sink := s.bc, s.sink
	s.mu.Unlock()
	if bc != nil {
		return bc.release(sink)
	}
	return s.cancel()
}

// Close makes `defer sub.Close()` the scope-exit release; it is the same
// idempotent cancel.
func (s *Subscription) Close() error { return s.Cancel() }

// Clone returns an independent handle fed from the same upstream stream.
// Every clone observes every message. The first Clone call moves the
// subscription into broadcast mode; the original handle keeps its position,
// the clone starts from the messages still undelivered upstream.
func (s *Subscription) Clone() *Subscription {
	s.mu.Lock()
	if s.bc == nil {
		s.bc = newBroadcaster(s.queue, s.cancel)
		s.sink = s.bc.add()
	}
	bc := s.bc
	s.mu.Unlock()

	clone := &Subscription{
		queue:    s.queue,
		bc:       bc,
		sink:     bc.add(),
		terminal: s.terminal,
		cancel:   s.cancel,
	}
	return clone
}

// broadcaster fans one upstream queue out to every clone's sink. The
// upstream cancel is guarded by one shared flag: last release fires it.
type broadcaster struct {
	src    *bus.Queue
	cancel func() error

	mu      sync.Mutex
	sinks   []*bus.Queue
	started bool

	upstreamOnce sync.Once
}

func newBroadcaster(src *bus.Queue, cancel func() error) *broadcaster {
	return &broadcaster{src: src, cancel: cancel}
}

func (b *broadcaster) add() *bus.Queue {
	sink := bus.NewQueue()
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	if !b.started {
		b.started = true
		go b.run()
	}
	b.mu.Unlock()
	return sink
}

func (b *broadcaster) run() {
	for r := range b.src.Out() {
		b.mu.Lock()
		sinks := make([]*bus.Queue, len(b.sinks))
		copy(sinks, b.sinks)
		b.mu.Unlock()
		for _, sink := range sinks {
			sink.Push(r)
		}
	}
	err := b.src.Err()
	b.mu.Lock()
	sinks := make([]*bus.Queue, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.Unlock()
	for _, sink := range sinks {
		if err != nil {
			sink.Fail(err)
		} else {
			sink.Close()
		}
	}
}

func (b *broadcaster) release(sink *bus.Queue) error {
	b.mu.Lock()
	for i, s := range b.sinks {
		if s == sink {
			b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
			break
		}
	}
	remaining := len(b.sinks)
	b.mu.Unlock()
	sink.Close()
	if remaining > 0 {
		return nil
	}
	var err error
	b.upstreamOnce.Do(func() {
		err = b.cancel()
	})
	return err
}
