// Package protocol owns the wire contract and parsing primitives.
//
// Ownership boundary:
// - frame length-prefix primitives
// - field writer/reader primitives
// - message kind catalog and routing metadata
package protocol
