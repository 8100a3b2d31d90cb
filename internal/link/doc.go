// Package link owns the bridge interface: a self-healing TCP connection that
// exchanges length-framed opaque payloads with an owning packet router.
//
// Ownership boundary:
// - supervisor: the only code that dials or discards the socket
// - reader: one goroutine per connection, delivers payloads in wire order
// - writer: caller goroutines, serialized by a write lock
// - transport state: online flag, shutdown flag, byte/frame counters
//
// Fault flow:
// - reader or writer tears the connection down and closes its done channel
// - supervisor observes done, joins the reader, waits the reconnect delay, redials
// - network faults never reach the owner; in-flight payloads are lost
//
// Detach is one-way. It cancels dialing and waiting, closes the socket and
// joins every goroutine the interface started.
package link
