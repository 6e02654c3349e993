// Package gatewire is a client for a broker gateway's wire protocol: one
// persistent TCP socket multiplexing many logical request/reply and
// subscription streams.
//
// The package owns the transport only. It frames and correlates messages,
// survives socket loss, and hands raw reply frames to callers; per-domain
// encoders and decoders live with the caller.
package gatewire
