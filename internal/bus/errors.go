package bus

import "errors"

var (
	ErrConnectionReset  = errors.New("bus: connection reset")
	ErrNotConnected     = errors.New("bus: not connected")
	ErrClosed           = errors.New("bus: bus closed")
	ErrTimeout          = errors.New("bus: wait timed out")
	ErrMissingRequestID = errors.New("bus: request id required")
	ErrNoRoute          = errors.New("bus: no shared route for request kind")
	ErrDuplicateRequest = errors.New("bus: request id already in use")
)
