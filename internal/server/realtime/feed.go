package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Feed announces committed writes. Run delivers announcements from other
// backend instances into the local hub until ctx is done.
type Feed interface {
	Publish(ctx context.Context, path string) error
	Run(ctx context.Context) error
}

// LocalFeed serves a single backend instance.
type LocalFeed struct {
	hub *Hub
}

func NewLocalFeed(hub *Hub) *LocalFeed {
	return &LocalFeed{hub: hub}
}

func (f *LocalFeed) Publish(_ context.Context, path string) error {
	f.hub.Publish(path)
	return nil
}

func (f *LocalFeed) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

const DefaultChannel = "workoutlog:changes"

// RedisFeed shares write announcements between instances through Redis
// pub/sub. Local subscribers are woken directly; messages carry the origin
// instance so an instance skips its own echoes.
type RedisFeed struct {
	client   *redis.Client
	channel  string
	instance string
	hub      *Hub
	logger   logging.Logger
}

func NewRedisFeed(client *redis.Client, channel string, hub *Hub, logger logging.Logger) *RedisFeed {
	return &RedisFeed{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		hub:      hub,
		logger:   logger.With("module", "redis_feed"),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, path string) error {
	f.hub.Publish(path)
	if err := f.client.Publish(ctx, f.channel, f.instance+"|"+path).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (f *RedisFeed) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.handle(msg.Payload)
		}
	}
}

func (f *RedisFeed) handle(payload string) {
	origin, path, ok := strings.Cut(payload, "|")
	if !ok || path == "" {
		f.logger.Warn(context.Background(), "malformed change message", "payload", payload)
		return
	}
	if origin == f.instance {
		return
	}
	f.hub.Publish(path)
}
