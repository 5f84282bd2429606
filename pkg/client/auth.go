package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// CognitoSignUpAPI covers the registration calls.
type CognitoSignUpAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

// Authenticator performs the interactive Cognito flows: login, registration,
// and registration confirmation. Successful logins are persisted to the store
// so Session can refresh them later.
type Authenticator struct {
	auth     CognitoAuthAPI
	signup   CognitoSignUpAPI
	store    Store
	clientID string
}

func NewAuthenticator(auth CognitoAuthAPI, signup CognitoSignUpAPI, store Store, clientID string) *Authenticator {
	return &Authenticator{auth: auth, signup: signup, store: store, clientID: clientID}
}

// Login authenticates with username and password and stores the session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*TokenSet, error) {
	out, err := a.auth.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: cognitotypes.AuthFlowTypeUserPasswordAuth,
		ClientId: &a.clientID,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == nil {
		return nil, errors.New("login returned no credentials; additional challenges are not supported")
	}

	tokens := &TokenSet{
		IDToken:  *out.AuthenticationResult.IdToken,
		Username: username,
	}
	if out.AuthenticationResult.AccessToken != nil {
		tokens.AccessToken = *out.AuthenticationResult.AccessToken
	}
	if out.AuthenticationResult.RefreshToken != nil {
		tokens.RefreshToken = *out.AuthenticationResult.RefreshToken
	}

	if err := a.store.Save(tokens); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return tokens, nil
}

// Register creates a new user pool account.
func (a *Authenticator) Register(ctx context.Context, username, password, email string) error {
	_, err := a.signup.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: &a.clientID,
		Username: &username,
		Password: &password,
		UserAttributes: []cognitotypes.AttributeType{
			{Name: strPtr("email"), Value: &email},
		},
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// ConfirmRegistration submits the emailed confirmation code.
func (a *Authenticator) ConfirmRegistration(ctx context.Context, username, code string) error {
	_, err := a.signup.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         &a.clientID,
		Username:         &username,
		ConfirmationCode: &code,
	})
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	return nil
}

// Logout discards the stored session.
func (a *Authenticator) Logout() error {
	return a.store.Clear()
}

func strPtr(s string) *string { return &s }
