package gatewire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/quantrail/gatewire/internal/protocol"
	"github.com/quantrail/gatewire/internal/testutil/fakegw"
	"github.com/quantrail/gatewire/internal/testutil/testlog"
)

func startClient(t *testing.T, handle fakegw.Handler) (*fakegw.Server, *Client) {
	t.Helper()
	srv := fakegw.New()
	srv.Handle = handle
	if err := srv.Start(); err != nil {
		t.Fatalf("server: %v", err)
	}
	t.Cleanup(srv.Close)

	host, port := srv.Addr()
	c, err := Connect(context.Background(), Config{
		Host:             host,
		Port:             port,
		ClientID:         3,
		ConnectTimeout:   2 * time.Second,
		HandshakeTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return srv, c
}

func framef(format string, args ...any) []byte {
	return []byte(fmt.Sprintf(format, args...))
}

func TestClientServerTime(t *testing.T) {
	testlog.Start(t)
	const stamp = int64(1709994600)
	_, c := startClient(t, func(kind protocol.OutgoingKind, _ []byte) [][]byte {
		if kind != protocol.OutReqCurrentTime {
			return nil
		}
		return [][]byte{framef("%d\x001\x00%d\x00", protocol.InCurrentTime, stamp)}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	got, err := c.ServerTime(ctx)
	if err != nil {
		t.Fatalf("server time: %v", err)
	}
	if got.Unix() != stamp {
		t.Fatalf("got %d, want %d", got.Unix(), stamp)
	}
}

func TestClientMetadataAndIDIssuance(t *testing.T) {
	testlog.Start(t)
	_, c := startClient(t, nil)

	m := c.Meta()
	if m.ServerVersion != 150 || m.NextOrderID != 90 {
		t.Fatalf("meta: %+v", m)
	}
	if len(m.ManagedAccounts) != 1 || m.ManagedAccounts[0] != "DU12345" {
		t.Fatalf("accounts: %v", m.ManagedAccounts)
	}
	if id := c.NextOrderID(); id != 90 {
		t.Fatalf("first order id: %d", id)
	}
	if id := c.NextOrderID(); id != 91 {
		t.Fatalf("second order id: %d", id)
	}
	if id := c.NextRequestID(); id != 90 {
		t.Fatalf("first request id: %d", id)
	}
}

func TestClientPositionsDrainToEOF(t *testing.T) {
	testlog.Start(t)
	_, c := startClient(t, func(kind protocol.OutgoingKind, _ []byte) [][]byte {
		if kind != protocol.OutReqPositions {
			return nil
		}
		return [][]byte{
			framef("%d\x003\x00DU12345\x001\x00AAPL\x00STK\x00\x00\x000\x00\x00\x00SMART\x00USD\x00AAPL\x00\x00100\x0010.5\x00", protocol.InPosition),
			framef("%d\x003\x00DU12345\x002\x00MSFT\x00STK\x00\x00\x000\x00\x00\x00SMART\x00USD\x00MSFT\x00\x0050\x0020.5\x00", protocol.InPosition),
			framef("%d\x001\x00", protocol.InPositionEnd),
		}
	})

	sub, err := c.Positions()
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	defer sub.Close()

	var kinds []IncomingKind
	for {
		r, err := sub.NextTimeout(3 * time.Second)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		kinds = append(kinds, r.Kind)
		if r.Kind == protocol.InPositionEnd {
			continue
		}
		rd := r.Reader()
		_ = rd.Skip() // version
		account, err := rd.String()
		if err != nil || account != "DU12345" {
			t.Fatalf("account=%q err=%v", account, err)
		}
	}
	if len(kinds) != 3 || kinds[2] != protocol.InPositionEnd {
		t.Fatalf("kinds: %v", kinds)
	}

	// finished stream keeps reporting EOF without blocking
	if _, _, err := sub.TryNext(); !errors.Is(err, io.EOF) {
		t.Fatalf("try after end: %v", err)
	}
}

func TestClientNoticesBroadcast(t *testing.T) {
	testlog.Start(t)
	srv, c := startClient(t, nil)

	sub, err := c.Notices()
	if err != nil {
		t.Fatalf("notices: %v", err)
	}
	defer sub.Close()

	notice := framef("%d\x002\x00-1\x002104\x00Market data farm connection is OK\x00", protocol.InErrorMessage)
	if err := srv.Send(notice); err != nil {
		t.Fatalf("inject: %v", err)
	}

	r, err := sub.NextTimeout(3 * time.Second)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if r.Kind != protocol.InErrorMessage {
		t.Fatalf("kind: %v", r.Kind)
	}
	rd := r.Reader()
	_ = rd.Skip() // version
	id, _ := rd.Long()
	code, _ := rd.Long()
	if id != -1 || code != 2104 {
		t.Fatalf("id=%d code=%d", id, code)
	}
}

func TestClientNextTimeoutOnSilentStream(t *testing.T) {
	testlog.Start(t)
	_, c := startClient(t, nil)

	sub, err := c.MarketData(c.NextRequestID(), "AAPL", "STK", "SMART", "USD")
	if err != nil {
		t.Fatalf("market data: %v", err)
	}
	defer sub.Close()

	if _, err := sub.NextTimeout(100 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err=%v, want %v", err, ErrTimeout)
	}
}

func TestClientSendRequestRejectsBadIDs(t *testing.T) {
	testlog.Start(t)
	_, c := startClient(t, nil)

	if _, err := c.SendRequest(0, NewRequest(OutReqMktData)); !errors.Is(err, ErrMissingRequestID) {
		t.Fatalf("zero id: %v", err)
	}
	reqID := c.NextRequestID()
	if _, err := c.MarketData(reqID, "AAPL", "STK", "SMART", "USD"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := c.MarketData(reqID, "MSFT", "STK", "SMART", "USD"); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("duplicate: %v", err)
	}
}
