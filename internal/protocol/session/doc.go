// Package session owns link tuning shared by the bridge interface.
//
// Ownership boundary:
// - connect/read/write timeouts
// - reconnect delay and optional backoff growth
// - advisory MTU/bitrate metadata handed to the router
package session
