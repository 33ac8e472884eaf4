package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"stockpilot/internal/httputil"
)

const (
	tokenStoreKey     = "kis:access_token"
	tokenExpiryBuffer = 5 * time.Minute
)

// TokenStore is a keyed store with TTL semantics. Abstracted so the cache
// can be tested without a Redis server.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisTokenStore backs TokenStore with Redis, so the cached credential
// survives process restarts and is shared across instances.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(redisURL string) (*RedisTokenStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisTokenStore{client: client}, nil
}

func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (s *RedisTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisTokenStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// TokenCache manages the KIS access token: cached lookups with a TTL,
// refresh-on-miss, and manual invalidation.
type TokenCache struct {
	store      TokenStore
	baseURL    string
	appKey     string
	appSecret  string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewTokenCache(store TokenStore, baseURL, appKey, appSecret string) *TokenCache {
	return &TokenCache{
		store:      store,
		baseURL:    baseURL,
		appKey:     appKey,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// Get returns the cached access token, issuing a new one on a cache miss.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	cached, err := c.store.Get(ctx, tokenStoreKey)
	if err != nil {
		return "", fmt.Errorf("token store get: %w", err)
	}
	if cached != "" {
		return cached, nil
	}

	fmt.Println("[KIS] No cached token - issuing a new one")
	return c.issueToken(ctx)
}

// Invalidate drops the cached token so the next Get issues a fresh one.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.store.Del(ctx, tokenStoreKey)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *TokenCache) issueToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	expiry := time.Duration(tr.ExpiresIn) * time.Second
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	// Expire the cache entry before the token itself expires so a cached
	// token handed to a caller is never already dead.
	ttl := expiry - tokenExpiryBuffer
	if ttl <= 0 {
		ttl = expiry / 2
	}
	if err := c.store.Set(ctx, tokenStoreKey, tr.AccessToken, ttl); err != nil {
		return "", fmt.Errorf("token store set: %w", err)
	}

	fmt.Printf("[KIS] New token issued, cached for %s\n", ttl)
	return tr.AccessToken, nil
}
