package bus

import (
	"sync"

	"github.com/quantrail/gatewire/internal/protocol"
)

// Reply is one raw incoming frame. The bus never interprets business fields;
// callers decode the payload with their own readers.
type Reply struct {
	Kind    protocol.IncomingKind
	Payload []byte
}

// Reader returns a fresh sequential reader over the payload, positioned past
// the leading kind field.
func (r Reply) Reader() *protocol.Reader {
	rd := protocol.NewReader(r.Payload)
	_ = rd.Skip()
	return rd
}

// Queue is the delivery endpoint behind one channel-table entry. Producers
// never block: an internal pump buffers without bound between the read loop
// and a slow consumer, so a stalled subscriber delays its own stream only.
type Queue struct {
	in  chan Reply
	out chan Reply

	mu     sync.Mutex
	closed bool
	err    error
}

func NewQueue() *Queue {
	q := &Queue{
		in:  make(chan Reply),
		out: make(chan Reply),
	}
	go q.pump()
	return q
}

func (q *Queue) pump() {
	var buf []Reply
	in := q.in
	for {
		var out chan Reply
		var next Reply
		if len(buf) > 0 {
			out = q.out
			next = buf[0]
		}
		if in == nil && out == nil {
			close(q.out)
			return
		}
		select {
		case r, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, r)
		case out <- next:
			buf = buf[1:]
		}
	}
}

// Push enqueues one reply. Returns false after the queue was closed.
func (q *Queue) Push(r Reply) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.in <- r
	return true
}

// Close ends the stream cleanly; Out drains and then closes.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.in)
}

// Fail records a terminal error and closes the stream. The first error wins.
func (q *Queue) Fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	close(q.in)
}

// Out is the consuming end. Exactly one logical consumer owns it; fan-out to
// clones happens above this layer.
func (q *Queue) Out() <-chan Reply { return q.out }

// Err returns the terminal error, if any, once Out has closed.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}
