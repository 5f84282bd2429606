package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionExpired means the refresh token itself no longer works; the user
// has to authenticate again from scratch.
var ErrSessionExpired = errors.New("session expired, please log in again")

// expirySkew treats a token expiring within this window as already expired,
// so a request never leaves with a token that dies in flight.
const expirySkew = 30 * time.Second

// CognitoAuthAPI is the slice of the Cognito identity-provider API the
// session needs.
type CognitoAuthAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// Session hands out a valid ID token, transparently refreshing an expired one
// with the stored refresh token. Concurrent callers share a single refresh.
type Session struct {
	cognito   CognitoAuthAPI
	store     Store
	clientID  string
	onExpired func()
	now       func() time.Time

	mu sync.Mutex
}

func NewSession(cognito CognitoAuthAPI, store Store, clientID string, onExpired func()) *Session {
	if onExpired == nil {
		onExpired = func() {}
	}
	return &Session{
		cognito:   cognito,
		store:     store,
		clientID:  clientID,
		onExpired: onExpired,
		now:       time.Now,
	}
}

// GetValidIDToken returns the stored ID token, refreshing it first when it is
// expired or about to expire. A failed refresh clears the stored session and
// returns ErrSessionExpired.
func (s *Session) GetValidIDToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.store.Load()
	if err != nil {
		return "", err
	}
	if tokens.IDToken == "" || tokens.RefreshToken == "" {
		return "", ErrNoSession
	}

	if !s.tokenExpired(tokens.IDToken) {
		return tokens.IDToken, nil
	}

	refreshed, err := s.refresh(ctx, tokens)
	if err != nil {
		// The refresh token is spent; holding on to the session would just
		// fail every call the same way.
		if clearErr := s.store.Clear(); clearErr != nil {
			return "", fmt.Errorf("%w (and failed to clear session: %v)", ErrSessionExpired, clearErr)
		}
		s.onExpired()
		return "", ErrSessionExpired
	}
	return refreshed.IDToken, nil
}

// tokenExpired inspects the exp claim without verifying the signature; the
// backend does the real verification. A token that cannot be parsed or lacks
// an expiry is treated as expired.
func (s *Session) tokenExpired(tokenString string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return s.now().Add(expirySkew).After(exp.Time)
}

func (s *Session) refresh(ctx context.Context, tokens *TokenSet) (*TokenSet, error) {
	out, err := s.cognito.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: cognitotypes.AuthFlowTypeRefreshTokenAuth,
		ClientId: &s.clientID,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": tokens.RefreshToken,
			"USERNAME":      tokens.Username,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return nil, errors.New("token refresh returned no credentials")
	}

	refreshed := &TokenSet{
		IDToken:      *out.AuthenticationResult.IdToken,
		RefreshToken: tokens.RefreshToken,
		Username:     tokens.Username,
	}
	if out.AuthenticationResult.AccessToken != nil {
		refreshed.AccessToken = *out.AuthenticationResult.AccessToken
	}
	// Cognito does not rotate the refresh token on this flow, but honor a
	// new one if it ever sends it.
	if out.AuthenticationResult.RefreshToken != nil {
		refreshed.RefreshToken = *out.AuthenticationResult.RefreshToken
	}

	if err := s.store.Save(refreshed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed session: %w", err)
	}
	return refreshed, nil
}
