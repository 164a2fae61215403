// Package cache connects to the Redis (or Dragonfly) instance that holds
// course download status.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "cloudmaster"

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

var errEmptyURL = errors.New("cache URL is empty")

// Key joins parts under KeyPrefix, e.g. Key("course_status", "SAA-C03")
// yields "cloudmaster:course_status:SAA-C03".
func Key(parts ...string) string {
	return KeyPrefix + ":" + strings.Join(parts, ":")
}

// Pattern matches every key under KeyPrefix and the given parts.
func Pattern(parts ...string) string {
	if len(parts) == 0 {
		return KeyPrefix + ":*"
	}
	return Key(parts...) + ":*"
}

// Cache holds the shared client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a redis:// or rediss:// URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, errEmptyURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects and pings. Timeouts already present in the URL are kept.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = dialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = ioTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = ioTimeout
	}
	if opts.ClientName == "" {
		opts.ClientName = KeyPrefix
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache at %s: %w", opts.Addr, err)
	}
	return &Cache{Client: client}, nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck is a readiness check for the connection.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
