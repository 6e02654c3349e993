package gatewire

import (
	"context"
	"errors"
	"time"

	"github.com/quantrail/gatewire/internal/bus"
	"github.com/quantrail/gatewire/internal/config"
	"github.com/quantrail/gatewire/internal/handshake"
	"github.com/quantrail/gatewire/internal/protocol"
	"github.com/quantrail/gatewire/internal/record"
)

// Metadata is the immutable session state established by the handshake.
type Metadata = handshake.Metadata

// Reply is one raw incoming frame; decode it with Reply.Reader.
type Reply = bus.Reply

// Request assembles one outgoing frame as an ordered field list.
type Request = protocol.Writer

// NewRequest starts a frame of the given kind.
func NewRequest(kind OutgoingKind) *Request {
	return protocol.NewWriter(kind)
}

// Config describes one gateway session.
type Config struct {
	Host     string
	Port     int
	ClientID int64

	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration

	BackoffCeiling       time.Duration
	MaxReconnectAttempts int

	Capabilities string

	// StartupHook observes raw pre-dispatch payloads during the handshake.
	StartupHook func(payload []byte)

	// Recorder overrides the env-driven capture facility when set.
	Recorder bus.Recorder
}

// FromClientConfig maps a TOML client config onto a session Config.
func FromClientConfig(cc config.ClientConfig) Config {
	connect, hs := cc.Timeouts()
	return Config{
		Host:                 cc.Host,
		Port:                 cc.Port,
		ClientID:             cc.ClientID,
		ConnectTimeout:       connect,
		HandshakeTimeout:     hs,
		BackoffCeiling:       cc.BackoffCeiling.Std(),
		MaxReconnectAttempts: cc.MaxReconnectAttempts,
		Capabilities:         cc.Capabilities,
	}
}

// Client is the façade over one gateway session. It is safe for concurrent
// use from many goroutines.
type Client struct {
	cfg Config
	bus *bus.Bus
	rec record.Recorder
}

// Connect dials the gateway, runs the startup negotiation, and starts the
// message bus.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	hs := handshake.Config{
		Host:             cfg.Host,
		Port:             cfg.Port,
		ClientID:         cfg.ClientID,
		ConnectTimeout:   cfg.ConnectTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Capabilities:     cfg.Capabilities,
		StartupHook:      cfg.StartupHook,
	}
	res, err := handshake.Dial(ctx, hs)
	if err != nil {
		return nil, err
	}

	var rec record.Recorder
	busRec := cfg.Recorder
	if busRec == nil {
		rec = record.NewFromEnv()
		busRec = rec
	}

	b := bus.New(res, bus.Config{
		BackoffCeiling:       cfg.BackoffCeiling,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		Recorder:             busRec,
		Redial: func(ctx context.Context) (*handshake.Result, error) {
			return handshake.Dial(ctx, hs)
		},
	})
	b.Start()
	return &Client{cfg: cfg, bus: b, rec: rec}, nil
}

// Meta returns the handshake metadata. Read-only.
func (c *Client) Meta() Metadata { return c.bus.Meta() }

// NextRequestID issues a fresh request id.
func (c *Client) NextRequestID() int64 { return c.bus.IDs().NextRequestID() }

// NextOrderID issues a fresh order id.
func (c *Client) NextOrderID() int64 { return c.bus.IDs().NextOrderID() }

// Close tears down the session. Open subscriptions close cleanly.
func (c *Client) Close() error {
	err := c.bus.Close()
	if c.rec != nil {
		if cerr := c.rec.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// SendRequest writes a frame correlated by the caller-generated request id
// and returns the subscription receiving its replies.
func (c *Client) SendRequest(reqID int64, req *Request) (*Subscription, error) {
	q, err := c.bus.SendRequest(reqID, req)
	if err != nil {
		return nil, err
	}
	kind := req.Kind()
	return newSubscription(q, 0, func() error {
		return c.bus.CancelRequest(kind, reqID)
	}), nil
}

// SendOrder writes an order frame correlated by order id.
func (c *Client) SendOrder(orderID int64, req *Request) (*Subscription, error) {
	q, err := c.bus.SendOrder(orderID, req)
	if err != nil {
		return nil, err
	}
	return newSubscription(q, 0, func() error {
		return c.bus.CancelOrder(orderID)
	}), nil
}

// SendShared writes a request whose replies carry no request id and returns
// a subscription over the shared channel for its reply family. The
// subscription ends after the family's terminal sentinel, if it has one.
func (c *Client) SendShared(req *Request) (*Subscription, error) {
	q, route, err := c.bus.SendShared(req)
	if err != nil {
		return nil, err
	}
	kind := req.Kind()
	return newSubscription(q, route.Terminal, func() error {
		return c.bus.CancelShared(kind)
	}), nil
}

// SendOneShot writes a request expecting exactly one reply and waits for it.
func (c *Client) SendOneShot(ctx context.Context, req *Request) (Reply, error) {
	return c.bus.SendOneShot(ctx, req)
}

// OneShotRetry is the caller-opt-in reset-retry pattern for idempotent
// metadata calls: a reply lost to a connection reset is re-issued until the
// bus either recovers or fails permanently.
func (c *Client) OneShotRetry(ctx context.Context, req *Request) (Reply, error) {
	r, err := c.bus.SendOneShot(ctx, req)
	for errors.Is(err, ErrConnectionReset) {
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
		r, err = c.bus.SendOneShot(ctx, req)
	}
	return r, err
}

// ServerTime asks the gateway clock, retrying once across a reset.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	req := NewRequest(OutReqCurrentTime).AddInt(1)
	r, err := c.OneShotRetry(ctx, req)
	if err != nil {
		return time.Time{}, err
	}
	rd := r.Reader()
	if err := rd.Skip(); err != nil { // version
		return time.Time{}, err
	}
	return rd.Time()
}

// Positions subscribes to the account position stream. Replies are shared
// frames with no request id; the subscription ends at the position-end
// sentinel.
func (c *Client) Positions() (*Subscription, error) {
	return c.SendShared(NewRequest(OutReqPositions).AddInt(1))
}

// OpenOrders requests the open-order snapshot stream.
func (c *Client) OpenOrders() (*Subscription, error) {
	return c.SendShared(NewRequest(OutReqOpenOrders).AddInt(1))
}

// Notices exposes the broadcast channel for gateway error and status
// messages that match no request.
func (c *Client) Notices() (*Subscription, error) {
	q, ok := c.bus.SharedQueue(protocol.InErrorMessage)
	if !ok {
		return nil, bus.ErrNoRoute
	}
	return newSubscription(q, 0, func() error { return nil }), nil
}

// MarketData subscribes to streaming market data for one instrument. Only
// the correlation id matters to the transport; the remaining fields pass
// through to the gateway untouched.
func (c *Client) MarketData(reqID int64, symbol, secType, exchange, currency string) (*Subscription, error) {
	req := NewRequest(OutReqMktData).
		AddInt(11). // message version
		AddLong(reqID).
		AddInt(0). // contract id unknown
		AddString(symbol).
		AddString(secType).
		AddString(""). // expiry
		AddFloat(0).   // strike
		AddString(""). // right
		AddString(""). // multiplier
		AddString(exchange).
		AddString(""). // primary exchange
		AddString(currency).
		AddString(""). // local symbol
		AddString(""). // trading class
		AddString(""). // generic ticks
		AddBool(false). // snapshot
		AddBool(false)  // regulatory snapshot
	return c.SendRequest(reqID, req)
}

// PlaceOrder submits a caller-assembled order frame keyed by order id. The
// order body passes through untouched; status and fill reports for the id
// arrive on the returned subscription.
func (c *Client) PlaceOrder(orderID int64, order *Request) (*Subscription, error) {
	return c.SendOrder(orderID, order)
}

// CancelOrder asks the gateway to cancel a working order. Any subscription
// opened by SendOrder for this id closes.
func (c *Client) CancelOrder(orderID int64) error {
	return c.bus.CancelOrder(orderID)
}
