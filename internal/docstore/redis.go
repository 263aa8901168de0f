package docstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisFeed shares change notifications between several Showroom instances
// through a Redis pub/sub channel. Local subscribers are served by an
// embedded MemoryFeed fed from the Redis subscription.
type RedisFeed struct {
	client  *redis.Client
	channel string
	local   *MemoryFeed
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
}

// RedisFeedOpts holds parameters for creating a RedisFeed.
type RedisFeedOpts struct {
	Addr    string
	Channel string
	Client  *redis.Client // optional; overrides Addr
}

// NewRedisFeed connects to Redis and starts relaying the channel to local
// subscribers until Close is called.
func NewRedisFeed(ctx context.Context, opts RedisFeedOpts) (*RedisFeed, error) {
	if opts.Channel == "" {
		return nil, fmt.Errorf("docstore: redis feed: channel is required")
	}
	client := opts.Client
	if client == nil {
		if opts.Addr == "" {
			return nil, fmt.Errorf("docstore: redis feed: addr is required")
		}
		client = redis.NewClient(&redis.Options{Addr: opts.Addr})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("docstore: redis feed: ping: %w", err)
	}

	relayCtx, cancel := context.WithCancel(context.Background())
	f := &RedisFeed{
		client:  client,
		channel: opts.Channel,
		local:   NewMemoryFeed(),
		pubsub:  client.Subscribe(relayCtx, opts.Channel),
		cancel:  cancel,
	}
	go f.relay(relayCtx)
	return f, nil
}

// relay forwards Redis messages (payload = collection name) to local
// subscribers. go-redis reconnects the subscription on its own.
func (f *RedisFeed) relay(ctx context.Context) {
	ch := f.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			f.local.Publish(ctx, msg.Payload)
		}
	}
}

// Publish announces the change on Redis. If Redis is unreachable the change
// is still delivered to subscribers of this instance.
func (f *RedisFeed) Publish(ctx context.Context, collection string) {
	if err := f.client.Publish(ctx, f.channel, collection).Err(); err != nil {
		log.Warn().Err(err).Str("component", "feed").Str("collection", collection).
			Msg("redis publish failed; notifying local subscribers only")
		f.local.Publish(ctx, collection)
	}
}

// Subscribe registers a local subscriber.
func (f *RedisFeed) Subscribe(ctx context.Context, collection string) <-chan struct{} {
	return f.local.Subscribe(ctx, collection)
}

// Close stops relaying and closes the Redis connection.
func (f *RedisFeed) Close() error {
	f.cancel()
	if err := f.pubsub.Close(); err != nil {
		return fmt.Errorf("docstore: redis feed: close pubsub: %w", err)
	}
	return f.client.Close()
}
