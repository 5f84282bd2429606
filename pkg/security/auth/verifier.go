package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/joymathews/my-daily-log-app/pkg/config"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature, wrong
	// issuer or audience, expiry, unknown key id. Callers must not leak the
	// underlying cause to clients.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the verified identity attached to a request. Sub is the only
// claim the rest of the system consumes; it is opaque and stable per user.
type Claims struct {
	Sub      string
	Username string
}

// Verifier validates a bearer token and extracts its claims.
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (*Claims, error)
}

// CognitoVerifier verifies RS256 tokens issued by a Cognito user pool. Signing
// keys are resolved by the token's key id against the pool's hosted JWKS; the
// key-set client caches keys and refreshes them in the background.
type CognitoVerifier struct {
	keys     keyfunc.Keyfunc
	issuer   string
	audience string
}

// NewCognitoVerifier builds a verifier for the configured user pool. The JWKS
// endpoint must be reachable at construction time.
func NewCognitoVerifier(ctx context.Context, cfg config.CognitoConfig) (*CognitoVerifier, error) {
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL()})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", cfg.JWKSURL(), err)
	}
	return &CognitoVerifier{
		keys:     keys,
		issuer:   cfg.Issuer(),
		audience: cfg.AppClientID,
	}, nil
}

// NewCognitoVerifierWithKeys builds a verifier around an existing key set.
// Used by tests that serve a key set locally.
func NewCognitoVerifierWithKeys(keys keyfunc.Keyfunc, issuer, audience string) *CognitoVerifier {
	return &CognitoVerifier{keys: keys, issuer: issuer, audience: audience}
}

func (v *CognitoVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &cognitoClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{Sub: claims.Subject, Username: claims.Username}, nil
}

type cognitoClaims struct {
	Username string `json:"cognito:username"`
	jwt.RegisteredClaims
}
