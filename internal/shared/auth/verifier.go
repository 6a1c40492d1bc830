package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a verified token.
type Claims map[string]any

// Subject returns the "sub" claim.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// Email returns the "email" claim, if present.
func (c Claims) Email() string {
	s, _ := c["email"].(string)
	return s
}

// MockClaims is the identity returned when verification is bypassed.
func MockClaims() Claims {
	return Claims{"sub": "mock_user_id", "email": "mock@example.com"}
}

// KeyResolver resolves a signing key by key identifier.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Options configures a Verifier.
type Options struct {
	Issuer   string
	Audience string
	// Bypass skips verification entirely and returns MockClaims. Only for
	// local development; it disables authentication.
	Bypass bool
}

// Verifier checks RS256 bearer tokens against the identity provider's keys.
type Verifier struct {
	keys   KeyResolver
	opts   Options
	parser *jwt.Parser
}

// NewVerifier constructs a Verifier. keys may be nil only when opts.Bypass is set.
func NewVerifier(keys KeyResolver, opts Options) (*Verifier, error) {
	if !opts.Bypass {
		if keys == nil {
			return nil, errors.New("auth: key resolver is required")
		}
		if strings.TrimSpace(opts.Issuer) == "" || strings.TrimSpace(opts.Audience) == "" {
			return nil, errors.New("auth: issuer and audience are required")
		}
	}
	return &Verifier{
		keys: keys,
		opts: opts,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(opts.Audience),
			jwt.WithIssuer(opts.Issuer),
		),
	}, nil
}

// Bypassed reports whether verification is disabled.
func (v *Verifier) Bypassed() bool {
	return v.opts.Bypass
}

// Verify validates token and returns its claims. Failures are always *Error.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	if v.opts.Bypass {
		return MockClaims(), nil
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return Claims(claims), nil
}

func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return expired(err)
	case errors.Is(err, ErrKeyFetch),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return unknown(err)
	case isValidationError(err):
		return invalid(err)
	default:
		return unknown(fmt.Errorf("verify token: %w", err))
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenRequiredClaimMissing,
		ErrKeyNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
