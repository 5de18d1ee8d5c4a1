package stream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/realtime"
)

// State describes the channel's connection status as observed by displays.
type State string

const (
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateConnected    State = "connected"
)

// Handler receives a decoded event. Handlers run sequentially on the channel's
// read loop; one event is fully dispatched before the next is read.
type Handler func(realtime.Event)

// StatusHandler observes connection state transitions.
type StatusHandler func(State)

// Options tunes the reconnection policy.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay < o.InitialDelay {
		o.MaxDelay = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Channel multiplexes typed event subscriptions over a single transport
// connection. It is an explicitly constructed service with a
// Connect/Close lifecycle, not ambient process state; each display owns the
// instance it was handed.
//
// Handlers are registered under a caller-chosen key. Re-registering the same
// key replaces the previous handler, and Off removes it, so a view that
// unmounts and remounts never accumulates duplicate deliveries.
type Channel struct {
	transport Transport
	opts      Options
	logger    *zap.Logger

	mu         sync.Mutex
	conn       Conn
	state      State
	rooms      map[realtime.Room]struct{}
	handlers   map[realtime.Kind]map[string]Handler
	statusSubs map[string]StatusHandler
	closed     bool

	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChannel builds a channel over the given transport. Call Connect before
// Join; nothing dials lazily.
func NewChannel(transport Transport, opts Options) *Channel {
	opts = opts.withDefaults()
	return &Channel{
		transport:  transport,
		opts:       opts,
		logger:     opts.Logger,
		state:      StateDisconnected,
		rooms:      make(map[realtime.Room]struct{}),
		handlers:   make(map[realtime.Kind]map[string]Handler),
		statusSubs: make(map[string]StatusHandler),
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the transport and starts the read loop.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return context.Canceled
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, err := c.transport.Dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.runCtx, c.cancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readLoop()
	return nil
}

// Close tears the channel down. Safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if done != nil {
		<-done
	}
	c.setState(StateDisconnected)
	return err
}

// Join subscribes the channel to a room. Membership is remembered and
// re-established after a reconnect. Fire-and-forget per the room protocol:
// a subscribe failure is logged, not returned, and retried on reconnect.
func (c *Channel) Join(ctx context.Context, room realtime.Room) {
	if !realtime.KnownRoom(room) {
		c.logger.Warn("ignoring join to unknown room", zap.String("room", string(room)))
		return
	}
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Subscribe(ctx, room); err != nil {
		c.logger.Warn("room join failed", zap.String("room", string(room)), zap.Error(err))
	}
}

// Leave unsubscribes the channel from a room.
func (c *Channel) Leave(ctx context.Context, room realtime.Room) {
	c.mu.Lock()
	delete(c.rooms, room)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Unsubscribe(ctx, room); err != nil {
		c.logger.Warn("room leave failed", zap.String("room", string(room)), zap.Error(err))
	}
}

// On registers a handler for an event kind under the given key. Registering
// the same key again replaces the previous handler.
func (c *Channel) On(kind realtime.Kind, key string, handler Handler) {
	if handler == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers[kind] == nil {
		c.handlers[kind] = make(map[string]Handler)
	}
	c.handlers[kind][key] = handler
}

// Off removes the handler registered under key for the event kind.
func (c *Channel) Off(kind realtime.Kind, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers[kind], key)
}

// OnStatus registers a connection-state observer under the given key.
func (c *Channel) OnStatus(key string, handler StatusHandler) {
	if handler == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusSubs[key] = handler
}

// OffStatus removes a connection-state observer.
func (c *Channel) OffStatus(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statusSubs, key)
}

func (c *Channel) readLoop() {
	defer close(c.done)
	for {
		c.mu.Lock()
		conn := c.conn
		ctx := c.runCtx
		closed := c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return
		}

		msg, err := conn.Receive(ctx)
		if err != nil {
			if c.isClosed() || ctx.Err() != nil {
				return
			}
			c.logger.Warn("stream receive failed", zap.Error(err))
			c.setState(StateDisconnected)
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		c.dispatch(msg)
	}
}

// reconnect dials replacement connections with linearly growing, capped
// delays. Room membership is re-established on the fresh connection before
// the channel reports connected again.
func (c *Channel) reconnect(ctx context.Context) bool {
	c.setState(StateReconnecting)

	delay := c.opts.InitialDelay
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, err := c.transport.Dial(ctx)
		if err != nil {
			c.logger.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max", c.opts.MaxAttempts),
				zap.Error(err))
			delay += c.opts.InitialDelay
			if delay > c.opts.MaxDelay {
				delay = c.opts.MaxDelay
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return false
		}
		c.conn = conn
		rooms := make([]realtime.Room, 0, len(c.rooms))
		for room := range c.rooms {
			rooms = append(rooms, room)
		}
		c.mu.Unlock()

		for _, room := range rooms {
			if err := conn.Subscribe(ctx, room); err != nil {
				c.logger.Warn("room rejoin failed", zap.String("room", string(room)), zap.Error(err))
			}
		}

		c.logger.Info("stream reconnected", zap.Int("attempt", attempt))
		c.setState(StateConnected)
		return true
	}

	c.logger.Error("stream reconnect attempts exhausted", zap.Int("max", c.opts.MaxAttempts))
	c.setState(StateDisconnected)
	return false
}

// dispatch decodes a frame and fans it out to every handler registered for
// its kind. Malformed frames are dropped here; a bad payload must never take
// a display down.
func (c *Channel) dispatch(msg Message) {
	event, err := realtime.Decode(msg.Data)
	if err != nil {
		c.logger.Debug("dropping undecodable frame",
			zap.String("room", string(msg.Room)),
			zap.Error(err))
		return
	}

	c.mu.Lock()
	registered := c.handlers[event.EventKind()]
	handlers := make([]Handler, 0, len(registered))
	for _, h := range registered {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	subs := make([]StatusHandler, 0, len(c.statusSubs))
	for _, h := range c.statusSubs {
		subs = append(subs, h)
	}
	c.mu.Unlock()

	for _, h := range subs {
		h(s)
	}
}
