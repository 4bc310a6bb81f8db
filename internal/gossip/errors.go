package gossip

import "errors"

var (
	// ErrPeeringDegreeReached is returned by AddConn once an overlay
	// already holds its configured number of peer connections.
	ErrPeeringDegreeReached = errors.New("gossip: peering degree reached")
	// ErrSizeMismatch is returned by Publish when a message's size doesn't
	// match the overlay's fixed message size; received messages of the
	// wrong size are dropped instead.
	ErrSizeMismatch = errors.New("gossip: message size mismatch")
)
