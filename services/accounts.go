package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/database"
	"taskboard/models"
	"taskboard/utilities"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
)

// Identity is what the identity provider vouches for after verifying a token.
type Identity struct {
	UID   string
	Email string
	Admin bool
}

// Session is the token set issued by a password sign-in.
type Session struct {
	UID          string `json:"-"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// IdentityProvider is the external account service. Implementations return
// ErrInvalidCredentials, ErrInvalidToken and ErrEmailTaken for the matching
// conditions and plain errors for outages.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (uid string, err error)
	DeleteUser(ctx context.Context, uid string) error
	SignIn(ctx context.Context, email, password string) (*Session, error)
	VerifyToken(ctx context.Context, token string) (*Identity, error)
	RevokeTokens(ctx context.Context, uid string) error
}

// ActorCache remembers which stored user a provider uid maps to.
// LookupActor returns nil without error on a miss.
type ActorCache interface {
	LookupActor(ctx context.Context, uid string) (*Actor, error)
	SaveActor(ctx context.Context, uid string, actor Actor) error
	EvictActor(ctx context.Context, uid string) error
}

type LoginResponse struct {
	Session
	User *models.User `json:"user"`
}

type Accounts struct {
	store database.Store
	idp   IdentityProvider
	cache ActorCache
}

// NewAccounts wires the account operations. cache may be nil.
func NewAccounts(store database.Store, idp IdentityProvider, cache ActorCache) *Accounts {
	return &Accounts{store: store, idp: idp, cache: cache}
}

func unauthenticated(message string) *Failure {
	return &Failure{Code: CodeUnauthenticated, Resource: LevelUser, Message: message}
}

// Register creates the provider account first and the stored profile second.
// If the profile cannot be stored the provider account is removed again.
func (a *Accounts) Register(ctx context.Context, in models.RegisterInput) (*Result, error) {
	return finish(a.register(ctx, in))
}

func (a *Accounts) register(ctx context.Context, in models.RegisterInput) (*Result, error) {
	in.Normalize()
	if err := models.Validate(in); err != nil {
		return nil, invalid(err)
	}

	uid, err := a.idp.CreateUser(ctx, in.Email, in.Password, in.Name)
	if errors.Is(err, ErrEmailTaken) {
		return nil, &Failure{Code: CodeDuplicateName, Resource: LevelUser, Message: "a user with this email already exists"}
	}
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	id, err := a.store.InsertUser(ctx, &models.User{
		Name:          in.Name,
		Email:         in.Email,
		Active:        true,
		CredentialRef: uid,
	})
	if err != nil {
		if rbErr := a.idp.DeleteUser(ctx, uid); rbErr != nil {
			utilities.LogError(rbErr, fmt.Sprintf("Register: failed to roll back identity %s", uid))
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, &Failure{Code: CodeDuplicateName, Resource: LevelUser, Message: "a user with this email already exists"}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, lookupError(err, LevelUser)
	}
	utilities.LogInfo("Register: user %s created", user.ID)
	return succeed("User created successfully", user)
}

// Login signs in with email and password at the provider and returns its tokens.
func (a *Accounts) Login(ctx context.Context, in models.LoginInput) (*Result, error) {
	return finish(a.login(ctx, in))
}

func (a *Accounts) login(ctx context.Context, in models.LoginInput) (*Result, error) {
	in.Normalize()
	if err := models.Validate(in); err != nil {
		return nil, invalid(err)
	}
	sess, err := a.idp.SignIn(ctx, in.Email, in.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return nil, unauthenticated(ErrInvalidCredentials.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	user, err := a.store.FindUserByCredential(ctx, sess.UID)
	if err != nil {
		return nil, lookupError(err, LevelUser)
	}
	if !user.Active {
		return nil, unauthenticated("user account is disabled")
	}
	return succeed("Login successful", LoginResponse{Session: *sess, User: user})
}

// Authenticate verifies a bearer token and maps it to the acting user.
// Expected rejections come back as *Failure with CodeUnauthenticated.
func (a *Accounts) Authenticate(ctx context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, unauthenticated("missing bearer token")
	}
	id, err := a.idp.VerifyToken(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		return nil, unauthenticated(ErrInvalidToken.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	user, err := a.userForIdentity(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, unauthenticated("user account is disabled")
	}

	actor := &Actor{UserID: user.ID, Admin: user.Admin || id.Admin}
	if a.cache != nil {
		if err := a.cache.SaveActor(ctx, id.UID, *actor); err != nil {
			utilities.LogError(err, "Authenticate: identity cache write failed")
		}
	}
	return actor, nil
}

// userForIdentity loads the stored user behind a provider uid. The cache
// only shortens the uid lookup; the user is always read from the store so
// removals and deactivations apply immediately.
func (a *Accounts) userForIdentity(ctx context.Context, uid string) (*models.User, error) {
	if a.cache != nil {
		cached, err := a.cache.LookupActor(ctx, uid)
		if err != nil {
			utilities.LogError(err, "Authenticate: identity cache lookup failed")
		} else if cached != nil {
			user, err := a.store.GetUser(ctx, cached.UserID)
			if err == nil && user.CredentialRef == uid {
				return user, nil
			}
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("load user: %w", err)
			}
			a.evict(ctx, uid)
		}
	}

	user, err := a.store.FindUserByCredential(ctx, uid)
	if errors.Is(err, database.ErrNotFound) {
		return nil, unauthenticated("user is not registered")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (a *Accounts) evict(ctx context.Context, uid string) {
	if err := a.cache.EvictActor(ctx, uid); err != nil {
		utilities.LogError(err, "Authenticate: identity cache eviction failed")
	}
}

// Logout revokes the user's refresh tokens and forgets the cached mapping.
func (a *Accounts) Logout(ctx context.Context, actor Actor) (*Result, error) {
	return finish(a.logout(ctx, actor))
}

func (a *Accounts) logout(ctx context.Context, actor Actor) (*Result, error) {
	user, err := a.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, LevelUser)
	}
	if err := a.idp.RevokeTokens(ctx, user.CredentialRef); err != nil {
		return nil, fmt.Errorf("revoke tokens: %w", err)
	}
	if a.cache != nil {
		if err := a.cache.EvictActor(ctx, user.CredentialRef); err != nil {
			utilities.LogError(err, "Logout: identity cache eviction failed")
		}
	}
	return succeed("Logout successful", nil)
}

func (a *Accounts) Me(ctx context.Context, actor Actor) (*Result, error) {
	return finish(a.me(ctx, actor))
}

func (a *Accounts) me(ctx context.Context, actor Actor) (*Result, error) {
	user, err := a.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, LevelUser)
	}
	return succeed("User retrieved successfully", user)
}
