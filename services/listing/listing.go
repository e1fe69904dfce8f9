// Package listing fetches listings from the marketplace API, cached in Redis.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/utils"
)

const cachePrefix = "listing:"

// Cache is the subset of a key/value store the client needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	Client *redis.Client
}

func (r RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (r RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// Client reads listings through a read-through cache. A nil cache disables
// caching; cache failures only cost a round trip.
type Client struct {
	api    *utils.RESTClient
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient builds a listing client.
func NewClient(baseURL string, timeout time.Duration, cache Cache, ttl time.Duration, logger *zap.Logger) *Client {
	return &Client{api: utils.NewRESTClient(baseURL, timeout), cache: cache, ttl: ttl, logger: logger}
}

// Get returns the listing with the given id.
func (c *Client) Get(ctx context.Context, s models.Session, listingID string) (*models.Listing, error) {
	key := cachePrefix + listingID
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var l models.Listing
			if err := json.Unmarshal([]byte(raw), &l); err == nil {
				return &l, nil
			}
			c.logger.Warn("listing: dropping undecodable cache entry", zap.String("listingID", listingID))
		} else if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("listing: cache read failed", zap.String("listingID", listingID), zap.Error(err))
		}
	}

	var l models.Listing
	err := c.api.Do(ctx, "fetch listing", http.MethodGet, "/listings/"+url.PathEscape(listingID), s.Token, nil, nil, &l)
	if utils.IsNotFound(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if l.ID == "" {
		l.ID = listingID
	}

	if c.cache != nil {
		if raw, err := json.Marshal(l); err == nil {
			if err := c.cache.Set(ctx, key, string(raw), c.ttl); err != nil {
				c.logger.Warn("listing: cache write failed", zap.String("listingID", listingID), zap.Error(err))
			}
		}
	}
	return &l, nil
}
