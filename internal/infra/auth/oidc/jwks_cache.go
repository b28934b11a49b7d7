package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"
)

const (
	defaultJWKSCacheTTL     = 5 * time.Minute
	defaultJWKSMaxStale     = 15 * time.Minute
	defaultJWKSFetchTimeout = 5 * time.Second
)

type keyState int

const (
	keyMissing keyState = iota
	keyFresh
	keyStale
)

// jwksCache holds the verification key set for the process lifetime,
// refreshing after the TTL. A stale set keeps serving while one refresh runs;
// concurrent callers wait on that refresh instead of fetching again.
type jwksCache struct {
	url          string
	httpClient   *http.Client
	ttl          time.Duration
	maxStale     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	expiresAt  time.Time
	staleUntil time.Time

	refreshMu sync.Mutex
	refreshCh chan struct{}
	lastErr   error
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newJWKSCache(url string, httpClient *http.Client) *jwksCache {
	return &jwksCache{
		url:          url,
		httpClient:   httpClient,
		ttl:          defaultJWKSCacheTTL,
		maxStale:     defaultJWKSMaxStale,
		fetchTimeout: defaultJWKSFetchTimeout,
		now:          time.Now,
		keys:         map[string]*rsa.PublicKey{},
	}
}

func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, errors.New("kid is required")
	}
	if key, state := c.lookup(kid, c.now()); state == keyFresh {
		return key, nil
	} else if state == keyStale {
		c.refreshAsync()
		return key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, _ := c.lookup(kid, c.now()); key != nil {
		return key, nil
	}
	return nil, errors.New("jwks key not found")
}

func (c *jwksCache) lookup(kid string, now time.Time) (*rsa.PublicKey, keyState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	if !ok {
		return nil, keyMissing
	}
	if now.Before(c.expiresAt) {
		return key, keyFresh
	}
	if !c.staleUntil.IsZero() && now.Before(c.staleUntil) {
		return key, keyStale
	}
	return nil, keyMissing
}

func (c *jwksCache) refreshAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	go func() {
		_ = c.refresh(ctx)
		cancel()
	}()
}

// refresh fetches the key set once, with a single leader per round.
func (c *jwksCache) refresh(ctx context.Context) error {
	ch, leader := c.beginRefresh()
	if !leader {
		select {
		case <-ch:
			c.refreshMu.Lock()
			defer c.refreshMu.Unlock()
			return c.lastErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := c.doRefresh(ctx)

	c.refreshMu.Lock()
	c.lastErr = err
	close(ch)
	c.refreshCh = nil
	c.refreshMu.Unlock()
	return err
}

func (c *jwksCache) beginRefresh() (chan struct{}, bool) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if c.refreshCh != nil {
		return c.refreshCh, false
	}
	ch := make(chan struct{})
	c.refreshCh = ch
	return ch, true
}

func (c *jwksCache) doRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	keys, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	now := c.now()
	c.mu.Lock()
	c.keys = keys
	c.expiresAt = now.Add(c.ttl)
	c.staleUntil = c.expiresAt.Add(c.maxStale)
	c.mu.Unlock()
	return nil
}

func (c *jwksCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("jwks fetch failed")
	}
	var payload jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, key := range payload.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		pub, err := jwkToRSAPublicKey(key)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}
	return keys, nil
}

func jwkToRSAPublicKey(key jwkKey) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes).Int64()
	if e <= 0 || e > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{
		N: n,
		E: int(e),
	}, nil
}
