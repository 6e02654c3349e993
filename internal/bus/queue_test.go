package bus

import (
	"testing"
	"time"

	"github.com/quantrail/gatewire/internal/protocol"
	"github.com/quantrail/gatewire/internal/testutil/testlog"
)

func TestQueueBuffersWithoutBlockingProducer(t *testing.T) {
	testlog.Start(t)
	q := NewQueue()
	defer q.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if !q.Push(Reply{Kind: protocol.InCurrentTime}) {
				t.Errorf("push %d rejected", i)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("producer blocked with no consumer draining")
	}

	for i := 0; i < 100; i++ {
		select {
		case <-q.Out():
		case <-time.After(time.Second):
			t.Fatalf("reply %d never delivered", i)
		}
	}
}

func TestQueueCloseDrainsThenCloses(t *testing.T) {
	testlog.Start(t)
	q := NewQueue()
	q.Push(Reply{Kind: protocol.InPosition})
	q.Push(Reply{Kind: protocol.InPositionEnd})
	q.Close()

	var got []protocol.IncomingKind
	for r := range q.Out() {
		got = append(got, r.Kind)
	}
	if len(got) != 2 || got[0] != protocol.InPosition || got[1] != protocol.InPositionEnd {
		t.Fatalf("drained %v", got)
	}
	if q.Err() != nil {
		t.Fatalf("clean close should carry no error: %v", q.Err())
	}
	if q.Push(Reply{}) {
		t.Fatalf("push after close should be rejected")
	}
}

func TestQueueFailFirstErrorWins(t *testing.T) {
	testlog.Start(t)
	q := NewQueue()
	q.Fail(ErrConnectionReset)
	q.Fail(ErrClosed)

	if _, ok := <-q.Out(); ok {
		t.Fatalf("failed queue should deliver nothing")
	}
	if q.Err() != ErrConnectionReset {
		t.Fatalf("err=%v, want %v", q.Err(), ErrConnectionReset)
	}
}
