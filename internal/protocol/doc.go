// Package protocol owns the bridge wire contract.
//
// Ownership boundary:
// - frame: 2-byte big-endian length prefix + opaque payload
// - session: link tuning, timeouts, reconnect delay
//
// The wire carries no magic, version or checksum. Integrity relies on TCP.
package protocol
