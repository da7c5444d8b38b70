package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"taskboard/services"
	"taskboard/utilities"
)

const (
	identityToolkitURL     = "https://identitytoolkit.googleapis.com/v1"
	identityToolkitTimeout = 15 * time.Second
)

// authClient is the part of *auth.Client the Authenticator uses.
type authClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Authenticator implements services.IdentityProvider with Firebase
// Authentication. Password sign-in goes through the Identity Toolkit REST
// API, which the Admin SDK does not cover.
type Authenticator struct {
	client     authClient
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewAuthenticator(ctx context.Context, app *firebase.App, apiKey string) (*Authenticator, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &Authenticator{
		client:     client,
		apiKey:     apiKey,
		baseURL:    identityToolkitURL,
		httpClient: &http.Client{Timeout: identityToolkitTimeout},
	}, nil
}

func (a *Authenticator) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(false).
		Password(password).
		DisplayName(displayName).
		Disabled(false)

	user, err := a.client.CreateUser(ctx, params)
	if auth.IsEmailAlreadyExists(err) {
		return "", services.ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("create firebase user: %w", err)
	}

	utilities.LogInfo("Firebase user created: UID = %s", user.UID)
	return user.UID, nil
}

func (a *Authenticator) DeleteUser(ctx context.Context, uid string) error {
	err := a.client.DeleteUser(ctx, uid)
	if auth.IsUserNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete firebase user: %w", err)
	}
	utilities.LogInfo("Firebase user %s deleted", uid)
	return nil
}

// VerifyToken checks the ID token signature, expiry and revocation. The
// "admin" custom claim, when present, is reported on the identity.
func (a *Authenticator) VerifyToken(ctx context.Context, idToken string) (*services.Identity, error) {
	token, err := a.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) ||
			auth.IsIDTokenRevoked(err) || auth.IsUserDisabled(err) {
			utilities.LogDebug("VerifyToken: rejected token: %v", err)
			return nil, services.ErrInvalidToken
		}
		return nil, fmt.Errorf("verify firebase token: %w", err)
	}
	return identityFromToken(token), nil
}

func identityFromToken(token *auth.Token) *services.Identity {
	id := &services.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if admin, ok := token.Claims["admin"].(bool); ok {
		id.Admin = admin
	}
	return id
}

func (a *Authenticator) RevokeTokens(ctx context.Context, uid string) error {
	if err := a.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke firebase tokens: %w", err)
	}
	return nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Identity Toolkit messages that mean the caller got the credentials wrong.
var credentialErrors = map[string]bool{
	"EMAIL_NOT_FOUND":           true,
	"INVALID_PASSWORD":          true,
	"INVALID_LOGIN_CREDENTIALS": true,
	"INVALID_EMAIL":             true,
	"USER_DISABLED":             true,
}

// SignIn exchanges email and password for Firebase tokens.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*services.Session, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY is not set")
	}

	var ok signInResponse
	var failure toolkitError
	status, err := a.callToolkit(ctx, "/accounts:signInWithPassword", signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &ok, &failure)
	if err != nil {
		if status == http.StatusBadRequest && credentialErrors[failure.Error.Message] {
			return nil, services.ErrInvalidCredentials
		}
		return nil, err
	}

	expires, _ := strconv.Atoi(ok.ExpiresIn)
	return &services.Session{
		UID:          ok.LocalID,
		IDToken:      ok.IDToken,
		RefreshToken: ok.RefreshToken,
		ExpiresIn:    expires,
	}, nil
}

// callToolkit posts a JSON payload and decodes the success or error body.
func (a *Authenticator) callToolkit(ctx context.Context, path string, payload, target, targetErr interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode identity toolkit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path+"?key="+a.apiKey, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build identity toolkit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call identity toolkit: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read identity toolkit response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, target); err != nil {
			return resp.StatusCode, fmt.Errorf("decode identity toolkit response: %w", err)
		}
		return resp.StatusCode, nil
	}

	if err := json.Unmarshal(raw, targetErr); err != nil {
		utilities.LogDebug("callToolkit: unexpected error body: %s", string(raw))
	}
	return resp.StatusCode, fmt.Errorf("identity toolkit returned status %d: %s", resp.StatusCode, string(raw))
}
