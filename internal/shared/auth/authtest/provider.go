// Package authtest runs an in-process identity provider that publishes a
// JWKS document and mints RS256 tokens, for tests of the verifier and of
// authenticated routes.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Audience = "https://api.jobmate.test"
	Subject  = "auth0|user-123"
	Email    = "user@jobmate.test"
)

// Provider is a fake identity provider.
type Provider struct {
	Server *httptest.Server

	mu      sync.Mutex
	keys    map[string]*rsa.PrivateKey
	raw     []map[string]any
	fetches atomic.Int64
	fail    atomic.Bool
}

// NewProvider starts a provider publishing one key with kid "key-1".
func NewProvider(t testing.TB) *Provider {
	t.Helper()
	p := &Provider{keys: map[string]*rsa.PrivateKey{}}
	p.AddKey(t, "key-1")
	p.Server = httptest.NewServer(http.HandlerFunc(p.serveJWKS))
	t.Cleanup(p.Server.Close)
	return p
}

// JWKSURL is the key set endpoint.
func (p *Provider) JWKSURL() string {
	return p.Server.URL + "/.well-known/jwks.json"
}

// Issuer is the issuer claim tokens carry by default.
func (p *Provider) Issuer() string {
	return p.Server.URL + "/"
}

// Fetches counts requests served on the JWKS endpoint.
func (p *Provider) Fetches() int64 {
	return p.fetches.Load()
}

// FailFetches makes the JWKS endpoint answer 500.
func (p *Provider) FailFetches(fail bool) {
	p.fail.Store(fail)
}

// AddKey generates and publishes a new signing key.
func (p *Provider) AddKey(t testing.TB, kid string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	p.mu.Lock()
	p.keys[kid] = key
	p.mu.Unlock()
}

// RemoveKey stops publishing kid.
func (p *Provider) RemoveKey(kid string) {
	p.mu.Lock()
	delete(p.keys, kid)
	p.mu.Unlock()
}

// AddRawKey publishes jwk verbatim next to the provider's own keys.
func (p *Provider) AddRawKey(jwk map[string]any) {
	p.mu.Lock()
	p.raw = append(p.raw, jwk)
	p.mu.Unlock()
}

// Claims returns a valid claim set for this provider, expiring in an hour.
func (p *Provider) Claims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":   Subject,
		"email": Email,
		"iss":   p.Issuer(),
		"aud":   Audience,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

// Sign mints a token with the given claims signed by kid.
func (p *Provider) Sign(t testing.TB, kid string, claims jwt.MapClaims) string {
	t.Helper()
	p.mu.Lock()
	key, ok := p.keys[kid]
	p.mu.Unlock()
	if !ok {
		// Unpublished key: sign with a fresh key the provider never exposes.
		var err error
		key, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Token mints a valid token signed by "key-1".
func (p *Provider) Token(t testing.TB) string {
	t.Helper()
	return p.Sign(t, "key-1", p.Claims())
}

func (p *Provider) serveJWKS(w http.ResponseWriter, r *http.Request) {
	p.fetches.Add(1)
	if p.fail.Load() {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}

	p.mu.Lock()
	keys := make([]map[string]any, 0, len(p.keys)+len(p.raw))
	for kid, key := range p.keys {
		keys = append(keys, map[string]any{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	}
	keys = append(keys, p.raw...)
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}
