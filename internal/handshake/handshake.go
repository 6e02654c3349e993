// Package handshake owns the TCP connect and startup negotiation. It yields
// session metadata and the live socket; everything after the first
// post-handshake messages belongs to the bus.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantrail/gatewire/internal/protocol"
)

const (
	apiPrefix = "API\x00"

	// version range offered during negotiation
	minClientVersion = 100
	maxClientVersion = 187

	startAPIVersion = 2
)

var (
	ErrConnectionFailed    = errors.New("handshake: connection failed")
	ErrHandshakeIncomplete = errors.New("handshake: premature end of stream")
)

// Config carries the dial parameters.
type Config struct {
	Host             string
	Port             int
	ClientID         int64
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	Capabilities     string

	// StartupHook observes every pre-dispatch payload seen while waiting for
	// the first post-handshake messages. Diagnostics only.
	StartupHook func(payload []byte)
}

// Metadata is the immutable result of a completed handshake.
type Metadata struct {
	ServerVersion   int
	ClientID        int64
	NextOrderID     int64
	ManagedAccounts []string
	ConnectionTime  time.Time
	TimeZone        *time.Location
}

// Result bundles the negotiated session. Pending holds payloads received
// during the handshake window that the bus must dispatch first.
type Result struct {
	Conn    net.Conn
	Meta    Metadata
	Pending [][]byte
}

// Dial connects and negotiates a session.
func Dial(ctx context.Context, cfg Config) (*Result, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// latency matters more than throughput on this socket
		_ = tcp.SetNoDelay(true)
	}

	res, err := negotiate(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return res, nil
}

func negotiate(conn net.Conn, cfg Config) (*Result, error) {
	if cfg.HandshakeTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(cfg.HandshakeTimeout)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		defer conn.SetDeadline(time.Time{})
	}

	versionRange := fmt.Sprintf("v%d..%d", minClientVersion, maxClientVersion)
	greeting := append([]byte(apiPrefix), protocol.Frame([]byte(versionRange))...)
	if _, err := conn.Write(greeting); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ack, err := protocol.ReadFrame(conn, protocol.DefaultLimits())
	if err != nil {
		return nil, wrapIncomplete(err)
	}
	r := protocol.NewReader(ack)
	serverVersion, err := r.Int()
	if err != nil {
		return nil, fmt.Errorf("%w: server version: %v", ErrHandshakeIncomplete, err)
	}
	connTimeRaw, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("%w: connection time: %v", ErrHandshakeIncomplete, err)
	}
	connTime, loc := parseConnectionTime(connTimeRaw)

	start := protocol.NewWriter(protocol.OutStartAPI).
		AddInt(startAPIVersion).
		AddLong(cfg.ClientID).
		AddString(cfg.Capabilities)
	if err := protocol.WriteFrame(conn, start.Payload()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	meta := Metadata{
		ServerVersion:  serverVersion,
		ClientID:       cfg.ClientID,
		ConnectionTime: connTime,
		TimeZone:       loc,
	}
	pending, err := drainStartup(conn, cfg, &meta)
	if err != nil {
		return nil, err
	}

	return &Result{Conn: conn, Meta: meta, Pending: pending}, nil
}

// drainStartup consumes frames until the initial order id and the managed
// account list have both arrived.
func drainStartup(conn net.Conn, cfg Config, meta *Metadata) ([][]byte, error) {
	var pending [][]byte
	haveOrderID, haveAccounts := false, false
	for !haveOrderID || !haveAccounts {
		payload, err := protocol.ReadFrame(conn, protocol.DefaultLimits())
		if err != nil {
			return nil, wrapIncomplete(err)
		}
		if cfg.StartupHook != nil {
			cfg.StartupHook(payload)
		}
		kind, r, err := protocol.Kind(payload)
		if err != nil {
			log.Debug().Msg("handshake: unreadable startup frame dropped")
			continue
		}
		switch kind {
		case protocol.InNextValidID:
			if err := r.Skip(); err != nil { // version
				return nil, wrapIncomplete(err)
			}
			id, err := r.Long()
			if err != nil {
				return nil, fmt.Errorf("%w: next order id: %v", ErrHandshakeIncomplete, err)
			}
			meta.NextOrderID = id
			haveOrderID = true
		case protocol.InManagedAccts:
			if err := r.Skip(); err != nil { // version
				return nil, wrapIncomplete(err)
			}
			raw, err := r.String()
			if err != nil {
				return nil, fmt.Errorf("%w: managed accounts: %v", ErrHandshakeIncomplete, err)
			}
			meta.ManagedAccounts = splitAccounts(raw)
			haveAccounts = true
		default:
			pending = append(pending, payload)
		}
	}
	return pending, nil
}

// parseConnectionTime parses "YYYYMMDD HH:MM:SS TZ". An unresolvable zone is
// non-fatal: the timestamp is parsed as UTC and the location left nil.
func parseConnectionTime(raw string) (time.Time, *time.Location) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, " ", 3)
	if len(parts) < 2 {
		log.Warn().Str("connection_time", raw).Msg("handshake: unparsable connection time")
		return time.Time{}, nil
	}
	stamp := parts[0] + " " + parts[1]

	var loc *time.Location
	if len(parts) == 3 {
		if l, err := time.LoadLocation(strings.TrimSpace(parts[2])); err == nil {
			loc = l
		} else {
			log.Warn().Str("zone", parts[2]).Msg("handshake: unresolved server time zone")
		}
	}
	parseLoc := loc
	if parseLoc == nil {
		parseLoc = time.UTC
	}
	t, err := time.ParseInLocation("20060102 15:04:05", stamp, parseLoc)
	if err != nil {
		log.Warn().Str("connection_time", raw).Msg("handshake: unparsable connection time")
		return time.Time{}, loc
	}
	return t, loc
}

func splitAccounts(raw string) []string {
	var out []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func wrapIncomplete(err error) error {
	return fmt.Errorf("%w: %v", ErrHandshakeIncomplete, err)
}
