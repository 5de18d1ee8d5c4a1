package realtime

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/config"
)

// Broadcaster fans an event out to every subscriber of a room.
type Broadcaster interface {
	Broadcast(ctx context.Context, room Room, event Event) error
}

// Module provides the broadcaster to the Fx graph.
var Module = fx.Provide(NewBroadcaster)

// ChannelName maps a room onto its underlying pub/sub channel.
func ChannelName(prefix string, room Room) string {
	return fmt.Sprintf("%s:%s", prefix, room)
}

// NewBroadcaster initialises the configured broadcaster (redis or noop).
func NewBroadcaster(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Broadcaster, error) {
	if !cfg.Realtime.Enabled {
		if logger != nil {
			logger.Info("realtime disabled; using noop broadcaster")
		}
		return noopBroadcaster{}, nil
	}
	return newRedisBroadcaster(lc, cfg.Realtime, logger)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, Room, Event) error { return nil }

type redisBroadcaster struct {
	client *goredis.Client
	prefix string
	logger *zap.Logger
}

func newRedisBroadcaster(lc fx.Lifecycle, cfg config.Realtime, logger *zap.Logger) (Broadcaster, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	b := &redisBroadcaster{client: client, prefix: cfg.ChannelPrefix, logger: logger}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping realtime redis: %w", err)
			}
			if logger != nil {
				logger.Info("realtime broadcaster connected", zap.String("addr", cfg.Addr))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if logger != nil {
				logger.Info("closing realtime broadcaster")
			}
			return client.Close()
		},
	})

	return b, nil
}

func (b *redisBroadcaster) Broadcast(ctx context.Context, room Room, event Event) error {
	if !KnownRoom(room) {
		return fmt.Errorf("unknown room %q", room)
	}
	frame, err := Encode(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, ChannelName(b.prefix, room), frame).Err()
}
