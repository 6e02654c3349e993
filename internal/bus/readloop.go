package bus

import (
	"context"
	"strconv"
	"time"

	"github.com/quantrail/gatewire/internal/observability"
	"github.com/quantrail/gatewire/internal/protocol"
)

func (b *Bus) run() {
	defer b.wg.Done()

	b.mu.Lock()
	buffered := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, payload := range buffered {
		b.dispatch(payload)
	}

	for {
		err := b.readLoop()
		if b.state.Load() == stateClosed {
			return
		}
		b.logg.Warn().Err(err).Msg("connection lost, entering reconnect")
		b.state.Store(stateReconnecting)
		b.failInFlight()

		if !b.reconnect() {
			if b.state.Load() == stateClosed {
				return
			}
			b.logg.Error().Msg("reconnect attempts exhausted, bus permanently failed")
			b.state.Store(stateFailed)
			b.failShared(ErrNotConnected)
			return
		}
		b.state.Store(stateActive)
		b.logg.Info().Msg("reconnected")
	}
}

func (b *Bus) readLoop() error {
	conn := b.currentConn()
	for {
		payload, err := protocol.ReadFrame(conn, b.cfg.Limits)
		if err != nil {
			return err
		}
		b.dispatch(payload)
	}
}

// dispatch routes one incoming frame: request-id channel first, then a
// pending one-shot waiter, then the shared channel for the kind. Unroutable
// frames are dropped with a diagnostic, never treated as fatal.
func (b *Bus) dispatch(payload []byte) {
	kind, _, err := protocol.Kind(payload)
	if err != nil {
		b.logg.Debug().Msg("frame with unreadable kind dropped")
		observability.RecordFrameDropped("unknown")
		return
	}
	kindLabel := strconv.FormatInt(int64(kind), 10)
	observability.RecordFrameRead(kindLabel, len(payload))
	if b.cfg.Recorder != nil {
		b.cfg.Recorder.Response(payload)
	}

	reply := Reply{Kind: kind, Payload: payload}

	if id, ok := protocol.PeekRequestID(kind, payload); ok {
		b.mu.Lock()
		entry, found := b.byID[id]
		terminal := found && protocol.Terminal(kind)
		if terminal {
			delete(b.byID, id)
		}
		n := len(b.byID)
		b.mu.Unlock()
		if found {
			entry.queue.Push(reply)
			if terminal {
				entry.queue.Close()
				observability.SetActiveSubscriptions(n)
			}
			return
		}
		// no id channel; a shared entry for the kind may still claim it
	}

	b.mu.Lock()
	if waiters := b.oneShots[kind]; len(waiters) > 0 {
		q := waiters[0]
		b.oneShots[kind] = waiters[1:]
		b.mu.Unlock()
		q.Push(reply)
		q.Close()
		return
	}
	entry, ok := b.shared[kind]
	b.mu.Unlock()
	if ok {
		entry.queue.Push(reply)
		return
	}

	b.logg.Debug().Int64("kind", int64(kind)).Msg("unroutable frame dropped")
	observability.RecordFrameDropped(kindLabel)
}

// failInFlight delivers the reset to everything waiting on the broken socket:
// request-id channels and one-shot waiters fail terminally, shared channels
// are failed and rebuilt so the table survives the outage.
func (b *Bus) failInFlight() {
	b.mu.Lock()
	keyed := make([]*Queue, 0, len(b.byID))
	for id, e := range b.byID {
		keyed = append(keyed, e.queue)
		delete(b.byID, id)
	}
	var waiters []*Queue
	for kind, qs := range b.oneShots {
		waiters = append(waiters, qs...)
		delete(b.oneShots, kind)
	}
	rebuilt := make([]*Queue, 0, len(b.byReq))
	seen := make(map[*sharedEntry]bool)
	for _, e := range b.shared {
		if seen[e] {
			continue
		}
		seen[e] = true
		rebuilt = append(rebuilt, e.queue)
		e.queue = NewQueue()
	}
	b.mu.Unlock()

	for _, q := range keyed {
		q.Fail(ErrConnectionReset)
	}
	for _, q := range waiters {
		q.Fail(ErrConnectionReset)
	}
	for _, q := range rebuilt {
		q.Fail(ErrConnectionReset)
	}
	observability.SetActiveSubscriptions(0)
}

func (b *Bus) failShared(err error) {
	b.mu.Lock()
	seen := make(map[*sharedEntry]bool)
	var qs []*Queue
	for _, e := range b.shared {
		if !seen[e] {
			seen[e] = true
			qs = append(qs, e.queue)
		}
	}
	b.mu.Unlock()
	for _, q := range qs {
		q.Fail(err)
	}
}

// reconnect runs the Fibonacci backoff loop for one outage. A fresh Backoff
// instance per outage restarts the sequence from its first terms.
func (b *Bus) reconnect() bool {
	if b.cfg.Redial == nil {
		return false
	}
	backoff := NewBackoff(b.cfg.BackoffCeiling, b.cfg.MaxReconnectAttempts)
	for {
		delay, ok := backoff.Next()
		if !ok {
			return false
		}
		select {
		case <-time.After(delay):
		case <-b.done:
			return false
		}
		observability.RecordReconnectAttempt()
		b.logg.Info().Int("attempt", backoff.Attempts()).Dur("delay", delay).Msg("reconnecting")

		res, err := b.cfg.Redial(context.Background())
		if err != nil {
			b.logg.Warn().Err(err).Msg("reconnect attempt failed")
			continue
		}
		b.setConn(res.Conn)
		for _, payload := range res.Pending {
			b.dispatch(payload)
		}
		return true
	}
}
