// Package eventfd models the notify primitive behind SYNC_WAIT: a fd the
// server writes a token to, and the client reads from once the
// wait resolves. Linux gets a real eventfd; other hosts fall back to a
// pipe, per spec's "fall back to a pipe where eventfd is unavailable."
package eventfd

// Notifier is a one-shot, edge-triggered wakeup primitive. Notify is safe
// to call from any goroutine; a failed write is ignored by callers per the
// wire contract ("the fd is edge-triggered readable").
type Notifier interface {
	// Notify writes a token (8 bytes to an eventfd, 1 byte to the pipe
	// fallback), waking any reader blocked on FD().
	Notify() error

	// FD returns the descriptor to hand to the client via SCM_RIGHTS.
	// It is the notifier's own descriptor, not a duplicate; Close closes it.
	FD() int

	// Close releases the server-side end of the notifier.
	Close() error
}
