// Package bus owns the socket after the handshake.
//
// Ownership boundary:
// - the single read loop and the serialized write path
// - the channel table correlating incoming frames to consumers
// - reconnection backoff and permanent-failure state
// - order/request id issuance
package bus
