package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// RedisConfig holds the settings of the invalidation bus
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Channel is the pub/sub channel carrying invalidations
	Channel string
	// PublishTimeout bounds each publish
	PublishTimeout time.Duration
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:           "localhost:6379",
		Channel:        "daokit:invalidate",
		PublishTimeout: 2 * time.Second,
	}
}

// RedisNotifier publishes local invalidations on a Redis channel and applies
// the ones published by other processes
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisNotifier connects to Redis and returns a notifier
func NewRedisNotifier(config RedisConfig, logger *zap.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}

	n := NewRedisNotifierWithClient(client, config.Channel, logger)
	if config.PublishTimeout > 0 {
		n.timeout = config.PublishTimeout
	}
	return n, nil
}

// NewRedisNotifierWithClient creates a notifier with an existing client
func NewRedisNotifierWithClient(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisConfig().Channel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		timeout: DefaultRedisConfig().PublishTimeout,
		logger:  logger,
	}
}

// Origin returns the identifier stamped on published invalidations
func (n *RedisNotifier) Origin() string {
	return n.origin
}

// Notify publishes inv. Failures are logged; the local cache is already consistent.
func (n *RedisNotifier) Notify(inv Invalidation) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.Publish(ctx, inv); err != nil {
		n.logger.Warn("publishing cache invalidation failed",
			zap.String("entity", inv.EntityType),
			zap.String("key", inv.Key),
			zap.Bool("all", inv.All),
			zap.Error(err))
	}
}

// Publish encodes inv with msgpack and publishes it on the channel
func (n *RedisNotifier) Publish(ctx context.Context, inv Invalidation) error {
	inv.Origin = n.origin
	payload, err := msgpack.Marshal(&inv)
	if err != nil {
		return fmt.Errorf("encoding invalidation: %w", err)
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Listener applies remote invalidations to a cache until closed
type Listener struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

// Subscribe starts applying invalidations from other origins to c.
// It returns once the subscription is confirmed by the server.
func (n *RedisNotifier) Subscribe(ctx context.Context, c *ObjectCache) (*Listener, error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", n.channel, err)
	}

	l := &Listener{pubsub: pubsub, done: make(chan struct{})}
	messages := pubsub.Channel()
	go func() {
		defer close(l.done)
		for msg := range messages {
			n.apply(c, msg.Payload)
		}
	}()
	return l, nil
}

// Listen subscribes and blocks until ctx is done
func (n *RedisNotifier) Listen(ctx context.Context, c *ObjectCache) error {
	l, err := n.Subscribe(ctx, c)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return l.Close()
}

func (n *RedisNotifier) apply(c *ObjectCache, payload string) {
	var inv Invalidation
	if err := msgpack.Unmarshal([]byte(payload), &inv); err != nil {
		n.logger.Warn("dropping malformed cache invalidation", zap.Error(err))
		return
	}
	if inv.Origin == n.origin {
		return
	}
	c.Apply(inv)
	n.logger.Debug("applied remote cache invalidation",
		zap.String("origin", inv.Origin),
		zap.String("entity", inv.EntityType),
		zap.String("key", inv.Key),
		zap.Bool("all", inv.All))
}

// Close closes the Redis client
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// Close stops the listener and waits for it to exit
func (l *Listener) Close() error {
	err := l.pubsub.Close()
	<-l.done
	return err
}
