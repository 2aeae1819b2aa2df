package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKey = "carrier:oauth:token"

// TokenStore keeps the carrier OAuth access token with its expiry. A shared
// store (redis) keeps multi-instance deployments from re-authenticating per
// instance; the in-memory store is instance-local and accepts that staleness.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(addr string) TokenStore {
	return &redisTokenStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *redisTokenStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token from redis: %w", err)
	}
	return value, nil
}

func (s *redisTokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set token in redis: %w", err)
	}
	return nil
}

type memoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryToken
}

type memoryToken struct {
	value      string
	expiration time.Time
}

func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{entries: make(map[string]memoryToken)}
}

func (s *memoryTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiration) {
		delete(s.entries, key)
		return "", nil
	}
	return entry.value, nil
}

func (s *memoryTokenStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryToken{value: value, expiration: time.Now().Add(ttl)}
	return nil
}

// expirySkew renews tokens slightly early so in-flight requests never carry
// one that expires mid-call.
const expirySkew = time.Minute

type tokenSource struct {
	store        TokenStore
	http         *http.Client
	baseURL      string
	clientID     string
	clientSecret string
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	token, err := t.store.Get(ctx, tokenKey)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint responded with status %d", res.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	ttl := time.Duration(payload.ExpiresIn)*time.Second - expirySkew
	if ttl > 0 {
		if err := t.store.Set(ctx, tokenKey, payload.AccessToken, ttl); err != nil {
			return "", err
		}
	}
	return payload.AccessToken, nil
}
