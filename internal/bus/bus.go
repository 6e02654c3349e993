package bus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantrail/gatewire/internal/handshake"
	"github.com/quantrail/gatewire/internal/observability"
	"github.com/quantrail/gatewire/internal/protocol"
)

// Recorder observes raw frames around each wire operation. Implementations
// must not block and must never fail the transport.
type Recorder interface {
	Request(payload []byte)
	Response(payload []byte)
}

// Redialer re-establishes the connection after a socket loss, re-running the
// handshake against the same gateway.
type Redialer func(ctx context.Context) (*handshake.Result, error)

// Config tunes the bus.
type Config struct {
	BackoffCeiling       time.Duration
	MaxReconnectAttempts int
	Limits               protocol.Limits
	Redial               Redialer
	Recorder             Recorder
}

const (
	stateActive int32 = iota
	stateReconnecting
	stateFailed
	stateClosed
)

type idEntry struct {
	queue *Queue
	kind  protocol.OutgoingKind
}

type sharedEntry struct {
	route Route
	queue *Queue
}

// Bus owns the socket: one read loop, a serialized write path, and the
// channel table routing every incoming frame to its consumer.
type Bus struct {
	cfg  Config
	meta handshake.Metadata
	ids  *IDManager
	logg zerolog.Logger

	connMu sync.RWMutex
	conn   net.Conn

	writeMu sync.Mutex

	state atomic.Int32

	mu       sync.Mutex
	byID     map[int64]idEntry
	shared   map[protocol.IncomingKind]*sharedEntry
	byReq    map[protocol.OutgoingKind]*sharedEntry
	oneShots map[protocol.IncomingKind][]*Queue
	pending  [][]byte

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a bus over a completed handshake. The static channel table is
// initialized here; Start launches the read loop.
func New(res *handshake.Result, cfg Config) *Bus {
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = protocol.DefaultLimits()
	}
	if cfg.BackoffCeiling == 0 {
		cfg.BackoffCeiling = 30 * time.Second
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 10
	}
	b := &Bus{
		cfg:      cfg,
		meta:     res.Meta,
		ids:      NewIDManager(res.Meta.NextOrderID),
		logg:     log.With().Str("component", "bus").Logger(),
		conn:     res.Conn,
		byID:     make(map[int64]idEntry),
		shared:   make(map[protocol.IncomingKind]*sharedEntry),
		byReq:    make(map[protocol.OutgoingKind]*sharedEntry),
		oneShots: make(map[protocol.IncomingKind][]*Queue),
		pending:  res.Pending,
		done:     make(chan struct{}),
	}
	for _, rt := range sharedRoutes {
		entry := &sharedEntry{route: rt, queue: NewQueue()}
		if rt.Request != 0 {
			b.byReq[rt.Request] = entry
		}
		for _, k := range rt.Replies {
			b.shared[k] = entry
		}
	}
	return b
}

// Start launches the read loop. Frames buffered during the handshake window
// are dispatched first, in arrival order.
func (b *Bus) Start() {
	b.wg.Add(1)
	go b.run()
}

// Meta returns the immutable session metadata from the handshake.
func (b *Bus) Meta() handshake.Metadata { return b.meta }

// IDs returns the id manager seeded by the handshake.
func (b *Bus) IDs() *IDManager { return b.ids }

// Close tears the bus down. All open channels close cleanly.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.state.Store(stateClosed)
		close(b.done)
		err = b.currentConn().Close()
		b.wg.Wait()

		b.mu.Lock()
		for id, e := range b.byID {
			e.queue.Close()
			delete(b.byID, id)
		}
		for _, e := range b.shared {
			e.queue.Close()
		}
		for kind, waiters := range b.oneShots {
			for _, q := range waiters {
				q.Fail(ErrClosed)
			}
			delete(b.oneShots, kind)
		}
		b.mu.Unlock()
		observability.SetActiveSubscriptions(0)
	})
	return err
}

func (b *Bus) checkState() error {
	switch b.state.Load() {
	case stateClosed:
		return ErrClosed
	case stateFailed:
		return ErrNotConnected
	case stateReconnecting:
		return ErrConnectionReset
	}
	return nil
}

// SendRequest registers a channel under the caller-generated request id and
// writes the frame. The returned queue receives every reply carrying that id
// and closes after the family's end sentinel.
func (b *Bus) SendRequest(reqID int64, w *protocol.Writer) (*Queue, error) {
	return b.sendKeyed(reqID, w)
}

// SendOrder is SendRequest keyed by order id; status, open-order and
// execution reports for that order land on the returned queue.
func (b *Bus) SendOrder(orderID int64, w *protocol.Writer) (*Queue, error) {
	return b.sendKeyed(orderID, w)
}

func (b *Bus) sendKeyed(id int64, w *protocol.Writer) (*Queue, error) {
	if err := b.checkState(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, ErrMissingRequestID
	}

	q := NewQueue()
	b.mu.Lock()
	if _, exists := b.byID[id]; exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrDuplicateRequest, id)
	}
	b.byID[id] = idEntry{queue: q, kind: w.Kind()}
	n := len(b.byID)
	b.mu.Unlock()
	observability.SetActiveSubscriptions(n)

	if err := b.write(w); err != nil {
		b.removeKeyed(id)
		q.Fail(err)
		return nil, err
	}
	return q, nil
}

// SendShared writes a request whose replies carry no caller id and returns
// the shared channel registered for its reply kinds.
func (b *Bus) SendShared(w *protocol.Writer) (*Queue, Route, error) {
	if err := b.checkState(); err != nil {
		return nil, Route{}, err
	}
	b.mu.Lock()
	entry, ok := b.byReq[w.Kind()]
	b.mu.Unlock()
	if !ok {
		return nil, Route{}, fmt.Errorf("%w: %d", ErrNoRoute, w.Kind())
	}
	if err := b.write(w); err != nil {
		return nil, Route{}, err
	}
	b.mu.Lock()
	q := entry.queue
	b.mu.Unlock()
	return q, entry.route, nil
}

// SharedQueue exposes a shared channel without sending anything, for
// broadcast families the gateway emits spontaneously.
func (b *Bus) SharedQueue(kind protocol.IncomingKind) (*Queue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.shared[kind]
	if !ok {
		return nil, false
	}
	return entry.queue, true
}

// SendOneShot writes a request expecting exactly one reply and waits for it.
// The waiter takes precedence over the shared channel for its reply kind.
func (b *Bus) SendOneShot(ctx context.Context, w *protocol.Writer) (Reply, error) {
	if err := b.checkState(); err != nil {
		return Reply{}, err
	}
	rt, ok := RouteFor(w.Kind())
	if !ok || len(rt.Replies) == 0 {
		return Reply{}, fmt.Errorf("%w: %d", ErrNoRoute, w.Kind())
	}
	replyKind := rt.Replies[0]

	q := NewQueue()
	b.mu.Lock()
	b.oneShots[replyKind] = append(b.oneShots[replyKind], q)
	b.mu.Unlock()

	if err := b.write(w); err != nil {
		b.dropOneShot(replyKind, q)
		return Reply{}, err
	}

	select {
	case r, ok := <-q.Out():
		if !ok {
			if err := q.Err(); err != nil {
				return Reply{}, err
			}
			return Reply{}, ErrClosed
		}
		return r, nil
	case <-ctx.Done():
		b.dropOneShot(replyKind, q)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Reply{}, ErrTimeout
		}
		return Reply{}, ctx.Err()
	case <-b.done:
		b.dropOneShot(replyKind, q)
		return Reply{}, ErrClosed
	}
}

// CancelRequest sends the kind-appropriate cancel message and removes the id
// channel. Kinds with no cancel counterpart only tear the channel down.
func (b *Bus) CancelRequest(kind protocol.OutgoingKind, reqID int64) error {
	defer b.removeKeyed(reqID)
	ck, ok := protocol.CancelKind(kind)
	if !ok {
		return nil
	}
	if err := b.checkState(); err != nil {
		return err
	}
	w := protocol.NewWriter(ck).AddInt(1)
	if reqID > 0 {
		w.AddLong(reqID)
	}
	return b.write(w)
}

// CancelOrder sends the order-cancel message and removes the order channel.
func (b *Bus) CancelOrder(orderID int64) error {
	defer b.removeKeyed(orderID)
	if err := b.checkState(); err != nil {
		return err
	}
	w := protocol.NewWriter(protocol.OutCancelOrder).AddInt(1).AddLong(orderID)
	return b.write(w)
}

// CancelShared sends the cancel counterpart of a shared request kind, if any.
func (b *Bus) CancelShared(kind protocol.OutgoingKind) error {
	ck, ok := protocol.CancelKind(kind)
	if !ok {
		return nil
	}
	if err := b.checkState(); err != nil {
		return err
	}
	return b.write(protocol.NewWriter(ck).AddInt(1))
}

// write serializes frame writes; the socket has many senders but one writer
// at a time.
func (b *Bus) write(w *protocol.Writer) error {
	payload := w.Payload()
	if b.cfg.Recorder != nil {
		b.cfg.Recorder.Request(payload)
	}

	b.writeMu.Lock()
	conn := b.currentConn()
	err := protocol.WriteFrame(conn, payload)
	b.writeMu.Unlock()

	if err != nil {
		b.logg.Warn().Err(err).Int64("kind", int64(w.Kind())).Msg("frame write failed")
		return fmt.Errorf("%w: %v", ErrConnectionReset, err)
	}
	observability.RecordFrameWritten(strconv.FormatInt(int64(w.Kind()), 10), len(payload))
	return nil
}

func (b *Bus) removeKeyed(id int64) {
	b.mu.Lock()
	e, ok := b.byID[id]
	if ok {
		delete(b.byID, id)
	}
	n := len(b.byID)
	b.mu.Unlock()
	if ok {
		e.queue.Close()
		observability.SetActiveSubscriptions(n)
	}
}

func (b *Bus) dropOneShot(kind protocol.IncomingKind, q *Queue) {
	b.mu.Lock()
	waiters := b.oneShots[kind]
	for i, w := range waiters {
		if w == q {
			b.oneShots[kind] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	q.Close()
}

func (b *Bus) currentConn() net.Conn {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.conn
}

func (b *Bus) setConn(conn net.Conn) {
	b.connMu.Lock()
	b.conn = conn
	b.connMu.Unlock()
}
