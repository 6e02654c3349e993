package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFrame       = errors.New("protocol: empty frame")
	ErrPayloadTooLarge  = errors.New("protocol: payload too large")
	ErrTruncated        = errors.New("protocol: truncated frame")
	ErrTruncatedMessage = errors.New("protocol: fewer fields than requested")
	ErrUnknownKind      = errors.New("protocol: unknown message kind")
)

// DecodeError reports a field that could not be parsed as the requested type.
type DecodeError struct {
	Index    int
	Expected string
	Token    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: field %d: %q is not a valid %s", e.Index, e.Token, e.Expected)
}
