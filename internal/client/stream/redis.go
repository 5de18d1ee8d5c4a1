package stream

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Additional-Code/brigade/internal/config"
	"github.com/Additional-Code/brigade/internal/realtime"
)

// redisTransport subscribes to the room channels the API broadcasts on.
type redisTransport struct {
	cfg config.Realtime
}

// NewRedisTransport builds the production transport over redis pub/sub.
func NewRedisTransport(cfg config.Realtime) Transport {
	return &redisTransport{cfg: cfg}
}

func (t *redisTransport) Dial(ctx context.Context) (Conn, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     t.cfg.Addr,
		Password: t.cfg.Password,
		DB:       t.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dial realtime redis: %w", err)
	}

	// Subscribe with no channels; rooms are added as the caller joins them.
	pubsub := client.Subscribe(ctx)
	return &redisConn{client: client, pubsub: pubsub, prefix: t.cfg.ChannelPrefix}, nil
}

type redisConn struct {
	client *goredis.Client
	pubsub *goredis.PubSub
	prefix string
}

func (c *redisConn) Subscribe(ctx context.Context, room realtime.Room) error {
	return c.pubsub.Subscribe(ctx, realtime.ChannelName(c.prefix, room))
}

func (c *redisConn) Unsubscribe(ctx context.Context, room realtime.Room) error {
	return c.pubsub.Unsubscribe(ctx, realtime.ChannelName(c.prefix, room))
}

func (c *redisConn) Receive(ctx context.Context) (Message, error) {
	for {
		msg, err := c.pubsub.ReceiveMessage(ctx)
		if err != nil {
			return Message{}, err
		}
		room, ok := c.roomFor(msg.Channel)
		if !ok {
			continue
		}
		return Message{Room: room, Data: []byte(msg.Payload)}, nil
	}
}

func (c *redisConn) roomFor(channel string) (realtime.Room, bool) {
	name, found := strings.CutPrefix(channel, c.prefix+":")
	if !found {
		return "", false
	}
	room := realtime.Room(name)
	return room, realtime.KnownRoom(room)
}

func (c *redisConn) Close() error {
	psErr := c.pubsub.Close()
	if err := c.client.Close(); err != nil {
		return err
	}
	return psErr
}
