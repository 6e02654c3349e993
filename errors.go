package gatewire

import (
	"github.com/quantrail/gatewire/internal/bus"
	"github.com/quantrail/gatewire/internal/handshake"
	"github.com/quantrail/gatewire/internal/protocol"
)

// Sentinel errors surfaced by the transport. Frame decode failures carry a
// *DecodeError.
var (
	ErrConnectionFailed    = handshake.ErrConnectionFailed
	ErrHandshakeIncomplete = handshake.ErrHandshakeIncomplete
	ErrConnectionReset     = bus.ErrConnectionReset
	ErrNotConnected        = bus.ErrNotConnected
	ErrClosed              = bus.ErrClosed
	ErrTimeout             = bus.ErrTimeout
	ErrMissingRequestID    = bus.ErrMissingRequestID
	ErrDuplicateRequest    = bus.ErrDuplicateRequest
	ErrNoRoute             = bus.ErrNoRoute
)

// DecodeError reports a reply field that failed typed decoding.
type DecodeError = protocol.DecodeError
