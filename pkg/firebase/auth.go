package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"

	socauth "github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/config"
)

var (
	ErrEmailExists     = errors.New("email already in use")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidPassword = errors.New("password must be at least 6 characters")
	ErrInvalidAccount  = errors.New("invalid account details")
	ErrAccountNotFound = errors.New("auth account not found")
)

// NewAccount describes an auth account created by an administrator.
type NewAccount struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthClient wraps the Firebase Auth admin client.
type AuthClient struct {
	client *auth.Client
}

// NewAuthClient initializes the Admin SDK for the project and returns its
// Auth client. Token verification needs only the project id; account
// management needs credentials with Firebase Auth admin rights.
func NewAuthClient(ctx context.Context, gcp config.GCPConfig) (*AuthClient, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth: %w", err)
	}
	return &AuthClient{client: client}, nil
}

// VerifyToken validates a Firebase ID token and returns the caller identity.
func (c *AuthClient) VerifyToken(ctx context.Context, idToken string) (socauth.Identity, error) {
	token, err := c.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return socauth.Identity{}, err
	}
	identity := socauth.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}

// CreateAccount registers a new email/password account and returns its uid.
func (c *AuthClient) CreateAccount(ctx context.Context, account NewAccount) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(strings.TrimSpace(account.Email)).
		Password(account.Password).
		DisplayName(strings.TrimSpace(account.DisplayName))

	record, err := c.client.CreateUser(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	return record.UID, nil
}

// DeleteAccount removes the auth account. A missing account returns ErrAccountNotFound.
func (c *AuthClient) DeleteAccount(ctx context.Context, uid string) error {
	if err := c.client.DeleteUser(ctx, uid); err != nil {
		return classify(err)
	}
	return nil
}

// SetDisabled enables or disables sign-in for the account.
func (c *AuthClient) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	params := (&auth.UserToUpdate{}).Disabled(disabled)
	if _, err := c.client.UpdateUser(ctx, uid, params); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps provider failures onto the package sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case auth.IsEmailAlreadyExists(err):
		return fmt.Errorf("%w: %v", ErrEmailExists, err)
	case auth.IsUserNotFound(err):
		return fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	}

	// UserToCreate validates its fields locally before any request is sent,
	// so these failures arrive as plain errors.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "email"):
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	case strings.Contains(msg, "password"):
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	case errorutils.IsInvalidArgument(err):
		return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	return err
}
