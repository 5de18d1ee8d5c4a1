// Package stream implements the client side of the push event channel: one
// underlying transport connection shared by all subscriptions, room
// membership, automatic reconnection with capped backoff, and a keyed
// handler registry so remounting views never leaves stale handlers behind.
package stream

import (
	"context"

	"github.com/Additional-Code/brigade/internal/realtime"
)

// Message is a raw frame received from a room.
type Message struct {
	Room realtime.Room
	Data []byte
}

// Conn is a live transport connection.
type Conn interface {
	// Subscribe adds the room to this connection's delivery set. Join is
	// fire-and-forget and idempotent; subscribing twice is harmless.
	Subscribe(ctx context.Context, room realtime.Room) error
	// Unsubscribe removes the room from the delivery set.
	Unsubscribe(ctx context.Context, room realtime.Room) error
	// Receive blocks until the next frame arrives or the connection fails.
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Transport dials connections. The channel owns exactly one live Conn at a
// time and dials a fresh one on reconnect.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}
