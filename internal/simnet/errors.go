package simnet

import "errors"

var (
	// ErrClosed names a closed connection. No function in this package
	// returns it: a cancelled scope surfaces from Recv as
	// simtime.ErrCancelled.
	ErrClosed = errors.New("simnet: connection closed")
)
