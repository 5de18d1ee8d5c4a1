package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/realtime"
	"github.com/Additional-Code/brigade/internal/status"
)

// fakeConn is a scriptable connection: tests push frames or a failure and the
// channel reads them back.
type fakeConn struct {
	mu     sync.Mutex
	rooms  map[realtime.Room]int
	frames chan Message
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		rooms:  make(map[realtime.Room]int),
		frames: make(chan Message, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Subscribe(_ context.Context, room realtime.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room]++
	return nil
}

func (c *fakeConn) Unsubscribe(_ context.Context, room realtime.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
	return nil
}

func (c *fakeConn) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.frames:
		return msg, nil
	case err := <-c.errs:
		return Message{}, err
	case <-c.closed:
		return Message{}, errors.New("connection closed")
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) subscribed(room realtime.Room) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[room] > 0
}

// fakeTransport hands out fakeConns and can be told to fail dials.
type fakeTransport struct {
	mu        sync.Mutex
	conns     []*fakeConn
	dials     int
	failDials int
}

func (t *fakeTransport) Dial(context.Context) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.failDials > 0 {
		t.failDials--
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.conns) {
		return nil
	}
	return t.conns[i]
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func fastOptions() Options {
	return Options{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func encodedCreate(t *testing.T, id int64) []byte {
	t.Helper()
	frame, err := realtime.Encode(realtime.OrderCreated{Order: dto.Order{
		ID:     id,
		Status: status.Pending,
	}})
	require.NoError(t, err)
	return frame
}

func TestChannelDispatchesTypedEvents(t *testing.T) {
	transport := &fakeTransport{}
	ch := NewChannel(transport, fastOptions())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	got := make(chan realtime.Event, 1)
	ch.On(realtime.KindOrderCreated, "kitchen-board", func(ev realtime.Event) {
		got <- ev
	})
	ch.Join(context.Background(), realtime.RoomKitchen)

	conn := transport.conn(0)
	require.NotNil(t, conn)
	assert.True(t, conn.subscribed(realtime.RoomKitchen))

	conn.frames <- Message{Room: realtime.RoomKitchen, Data: encodedCreate(t, 42)}

	select {
	case ev := <-got:
		created, ok := ev.(realtime.OrderCreated)
		require.True(t, ok)
		assert.Equal(t, int64(42), created.Order.ID)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestChannelDropsMalformedFrames(t *testing.T) {
	transport := &fakeTransport{}
	ch := NewChannel(transport, fastOptions())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	got := make(chan realtime.Event, 2)
	ch.On(realtime.KindOrderCreated, "k", func(ev realtime.Event) { got <- ev })

	conn := transport.conn(0)
	conn.frames <- Message{Room: realtime.RoomKitchen, Data: []byte(`{"type":"order:exploded","payload":{}}`)}
	conn.frames <- Message{Room: realtime.RoomKitchen, Data: encodedCreate(t, 7)}

	select {
	case ev := <-got:
		created := ev.(realtime.OrderCreated)
		assert.Equal(t, int64(7), created.Order.ID, "only the valid frame should be delivered")
	case <-time.After(time.Second):
		t.Fatal("valid frame was not delivered")
	}
	assert.Empty(t, got)
}

func TestChannelReconnectsAndRejoinsRooms(t *testing.T) {
	transport := &fakeTransport{}
	ch := NewChannel(transport, fastOptions())

	var mu sync.Mutex
	var states []State
	ch.OnStatus("test", func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()
	ch.Join(context.Background(), realtime.RoomKitchen)
	ch.Join(context.Background(), realtime.RoomOrders)

	transport.conn(0).errs <- errors.New("transport dropped")

	require.Eventually(t, func() bool {
		return ch.State() == StateConnected && transport.dialCount() == 2
	}, time.Second, time.Millisecond)

	replacement := transport.conn(1)
	require.NotNil(t, replacement)
	assert.True(t, replacement.subscribed(realtime.RoomKitchen))
	assert.True(t, replacement.subscribed(realtime.RoomOrders))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnected, StateDisconnected, StateReconnecting, StateConnected}, states)

	// Events flow again on the replacement connection.
	got := make(chan realtime.Event, 1)
	ch.On(realtime.KindOrderCreated, "k", func(ev realtime.Event) { got <- ev })
	replacement.frames <- Message{Room: realtime.RoomKitchen, Data: encodedCreate(t, 9)}
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("event not delivered after reconnect")
	}
}

func TestChannelGivesUpAfterMaxAttempts(t *testing.T) {
	transport := &fakeTransport{failDials: 10}
	opts := fastOptions()
	opts.MaxAttempts = 3
	ch := NewChannel(transport, opts)

	// First dial must succeed so the loop starts.
	transport.failDials = 0
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()
	transport.mu.Lock()
	transport.failDials = 10
	transport.mu.Unlock()

	transport.conn(0).errs <- errors.New("transport dropped")

	require.Eventually(t, func() bool {
		return transport.dialCount() == 1+3 && ch.State() == StateDisconnected
	}, time.Second, time.Millisecond)
}

func TestChannelKeyedRegistrationReplacesAndRemoves(t *testing.T) {
	transport := &fakeTransport{}
	ch := NewChannel(transport, fastOptions())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	var mu sync.Mutex
	firstCalls, secondCalls := 0, 0
	ch.On(realtime.KindOrderCreated, "board", func(realtime.Event) {
		mu.Lock()
		firstCalls++
		mu.Unlock()
	})
	// Same key: replaces, must not double-deliver.
	ch.On(realtime.KindOrderCreated, "board", func(realtime.Event) {
		mu.Lock()
		secondCalls++
		mu.Unlock()
	})

	conn := transport.conn(0)
	conn.frames <- Message{Room: realtime.RoomKitchen, Data: encodedCreate(t, 1)}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return secondCalls == 1
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Zero(t, firstCalls, "replaced handler must not fire")
	mu.Unlock()

	ch.Off(realtime.KindOrderCreated, "board")
	conn.frames <- Message{Room: realtime.RoomKitchen, Data: encodedCreate(t, 2)}

	// Deliver a sentinel through another key to know the previous frame was
	// processed.
	done := make(chan struct{}, 1)
	ch.On(realtime.KindOrderDeleted, "sentinel", func(realtime.Event) { done <- struct{}{} })
	frame, err := realtime.Encode(realtime.OrderDeleted{OrderID: 2})
	require.NoError(t, err)
	conn.frames <- Message{Room: realtime.RoomKitchen, Data: frame}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sentinel not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, secondCalls, "removed handler must not fire")
}

func TestChannelJoinUnknownRoomIgnored(t *testing.T) {
	transport := &fakeTransport{}
	ch := NewChannel(transport, fastOptions())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	ch.Join(context.Background(), realtime.Room("lounge"))
	assert.False(t, transport.conn(0).subscribed(realtime.Room("lounge")))
}
