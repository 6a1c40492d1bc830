package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"golang.org/x/sync/singleflight"

	"jobmate-backend/internal/shared/telemetry"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxJWKSBytes        = 1 << 20
)

var (
	// ErrKeyNotFound means the token's kid is not in the published key set,
	// even after a refresh.
	ErrKeyNotFound = errors.New("unable to find a signing key that matches the token kid")
	// ErrKeyFetch wraps network and decode failures while loading the key set.
	ErrKeyFetch = errors.New("fetch signing keys")
)

// KeySet is a process-wide cache of the identity provider's RSA signing keys.
// Lookups that miss trigger a refresh; concurrent misses share one fetch.
type KeySet struct {
	url        string
	client     *http.Client
	minRefresh time.Duration
	now        func() time.Time

	mu          sync.RWMutex
	store       jwkset.Storage
	lastRefresh time.Time

	group singleflight.Group
}

// KeySetOption customizes a KeySet.
type KeySetOption func(*KeySet)

// WithHTTPClient sets the client used to fetch the key set.
func WithHTTPClient(c *http.Client) KeySetOption {
	return func(k *KeySet) {
		if c != nil {
			k.client = c
		}
	}
}

// WithMinRefresh bounds how often a kid miss may re-fetch the key set.
func WithMinRefresh(d time.Duration) KeySetOption {
	return func(k *KeySet) {
		if d >= 0 {
			k.minRefresh = d
		}
	}
}

// NewKeySet builds an empty cache for the given JWKS URL. Nothing is fetched
// until the first lookup.
func NewKeySet(url string, opts ...KeySetOption) *KeySet {
	k := &KeySet{
		url:        url,
		client:     &http.Client{Timeout: defaultFetchTimeout},
		minRefresh: 30 * time.Second,
		now:        time.Now,
		store:      jwkset.NewMemoryStorage(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Key returns the public key for kid, refreshing the set on a miss.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := k.lookup(ctx, kid); ok {
		return key, nil
	}
	if err := k.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := k.lookup(ctx, kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}

// Len reports how many keys are cached.
func (k *KeySet) Len() int {
	keys, err := k.current().KeyReadAll(context.Background())
	if err != nil {
		return 0
	}
	return len(keys)
}

func (k *KeySet) current() jwkset.Storage {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.store
}

func (k *KeySet) lookup(ctx context.Context, kid string) (*rsa.PublicKey, bool) {
	jwk, err := k.current().KeyRead(ctx, kid)
	if err != nil {
		return nil, false
	}
	key, ok := jwk.Key().(*rsa.PublicKey)
	return key, ok
}

func (k *KeySet) refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if k.recentlyRefreshed() {
		return nil
	}

	// The fetch is shared by every waiting caller, so one caller's
	// cancellation must not abort it for the others.
	fetchCtx := context.WithoutCancel(ctx)
	ch := k.group.DoChan("jwks", func() (any, error) {
		if k.recentlyRefreshed() {
			return nil, nil
		}
		store, err := k.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.store = store
		k.lastRefresh = k.now()
		k.mu.Unlock()
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recentlyRefreshed holds for minRefresh after any successful fetch, even one
// that returned no usable keys.
func (k *KeySet) recentlyRefreshed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return !k.lastRefresh.IsZero() && k.now().Sub(k.lastRefresh) < k.minRefresh
}

func (k *KeySet) fetch(ctx context.Context) (jwkset.Storage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrKeyFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrKeyFetch, resp.StatusCode)
	}

	var doc jwkset.JWKSMarshal
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrKeyFetch, err)
	}

	store := jwkset.NewMemoryStorage()
	for _, raw := range doc.Keys {
		if raw.KID == "" || (raw.USE != "" && raw.USE != jwkset.UseSig) {
			continue
		}
		jwk, err := jwkset.NewJWKFromMarshal(raw, jwkset.JWKMarshalOptions{}, jwkset.JWKValidateOptions{})
		if err != nil {
			telemetry.Warn("auth.jwk_skipped", map[string]any{"kid": raw.KID, "error": err})
			continue
		}
		if _, ok := jwk.Key().(*rsa.PublicKey); !ok {
			continue
		}
		if err := store.KeyWrite(ctx, jwk); err != nil {
			return nil, fmt.Errorf("%w: store key %q: %w", ErrKeyFetch, raw.KID, err)
		}
	}
	return store, nil
}
