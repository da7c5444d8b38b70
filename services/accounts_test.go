package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/database"
	"taskboard/models"
)

type fakeIdentity struct {
	uid      string
	password string
	admin    bool
}

// fakeProvider stands in for the identity service. Tokens are "token-<uid>".
type fakeProvider struct {
	accounts  map[string]*fakeIdentity
	nextUID   int
	revoked   []string
	deleted   []string
	verifyErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeIdentity{}}
}

func (p *fakeProvider) CreateUser(_ context.Context, email, password, _ string) (string, error) {
	if _, ok := p.accounts[email]; ok {
		return "", ErrEmailTaken
	}
	p.nextUID++
	uid := "uid-" + string(rune('a'+p.nextUID-1))
	p.accounts[email] = &fakeIdentity{uid: uid, password: password}
	return uid, nil
}

func (p *fakeProvider) DeleteUser(_ context.Context, uid string) error {
	p.deleted = append(p.deleted, uid)
	for email, acc := range p.accounts {
		if acc.uid == uid {
			delete(p.accounts, email)
		}
	}
	return nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	acc, ok := p.accounts[email]
	if !ok || acc.password != password {
		return nil, ErrInvalidCredentials
	}
	return &Session{UID: acc.uid, IDToken: "token-" + acc.uid, RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) VerifyToken(_ context.Context, token string) (*Identity, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	for email, acc := range p.accounts {
		if token == "token-"+acc.uid {
			return &Identity{UID: acc.uid, Email: email, Admin: acc.admin}, nil
		}
	}
	return nil, ErrInvalidToken
}

func (p *fakeProvider) RevokeTokens(_ context.Context, uid string) error {
	p.revoked = append(p.revoked, uid)
	return nil
}

type mapCache struct {
	actors map[string]Actor
	hits   int
}

func (c *mapCache) LookupActor(_ context.Context, uid string) (*Actor, error) {
	a, ok := c.actors[uid]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &a, nil
}

func (c *mapCache) SaveActor(_ context.Context, uid string, actor Actor) error {
	c.actors[uid] = actor
	return nil
}

func (c *mapCache) EvictActor(_ context.Context, uid string) error {
	delete(c.actors, uid)
	return nil
}

type rejectingUserStore struct {
	database.Store
}

func (rejectingUserStore) InsertUser(context.Context, *models.User) (string, error) {
	return "", errors.New("disk full")
}

const goodPassword = "Str0ng-pass"

func register(t *testing.T, a *Accounts, name, email string) *models.User {
	t.Helper()
	res, err := a.Register(context.Background(), models.RegisterInput{Name: name, Email: email, Password: goodPassword})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Data.(*models.User)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	accounts := NewAccounts(store, idp, nil)

	user := register(t, accounts, "José Núñez", "  Jose@Example.com ")
	assert.Equal(t, "jose@example.com", user.Email)
	assert.True(t, user.Active)
	assert.False(t, user.Admin)
	assert.Equal(t, "uid-a", user.CredentialRef)

	res, err := accounts.Register(ctx, models.RegisterInput{Name: "Jose", Email: "jose@example.com", Password: goodPassword})
	assertFailure(t, res, err, CodeDuplicateName, LevelUser)

	res, err = accounts.Login(ctx, models.LoginInput{Email: "JOSE@example.com", Password: goodPassword})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	login := res.Data.(LoginResponse)
	assert.Equal(t, "token-uid-a", login.IDToken)
	assert.Equal(t, user.ID, login.User.ID)

	res, err = accounts.Login(ctx, models.LoginInput{Email: "jose@example.com", Password: "Wr0ng-pass"})
	assertFailure(t, res, err, CodeUnauthenticated, LevelUser)
}

func TestRegisterValidation(t *testing.T) {
	accounts := NewAccounts(database.NewMemoryStore(), newFakeProvider(), nil)
	cases := map[string]models.RegisterInput{
		"digits in name":  {Name: "R2D2", Email: "r2@example.com", Password: goodPassword},
		"bad email":       {Name: "Ana", Email: "not-an-email", Password: goodPassword},
		"short password":  {Name: "Ana", Email: "ana@example.com", Password: "S0-rt"},
		"no uppercase":    {Name: "Ana", Email: "ana@example.com", Password: "lower-case-1"},
		"no special char": {Name: "Ana", Email: "ana@example.com", Password: "NoSpecial123"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := accounts.Register(context.Background(), in)
			assertFailure(t, res, err, CodeValidation, "")
		})
	}
}

func TestRegisterRollsBackIdentityWhenStoreFails(t *testing.T) {
	idp := newFakeProvider()
	accounts := NewAccounts(rejectingUserStore{Store: database.NewMemoryStore()}, idp, nil)

	res, err := accounts.Register(context.Background(), models.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: goodPassword})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, []string{"uid-a"}, idp.deleted)
	assert.Empty(t, idp.accounts)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	cache := &mapCache{actors: map[string]Actor{}}
	accounts := NewAccounts(store, idp, cache)
	user := register(t, accounts, "Ana", "ana@example.com")

	actor, err := accounts.Authenticate(ctx, "token-"+user.CredentialRef)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)
	assert.False(t, actor.Admin)
	assert.Contains(t, cache.actors, user.CredentialRef)

	again, err := accounts.Authenticate(ctx, "token-"+user.CredentialRef)
	require.NoError(t, err)
	assert.Equal(t, *actor, *again)
	assert.Equal(t, 1, cache.hits)

	_, err = accounts.Authenticate(ctx, "forged")
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, CodeUnauthenticated, f.Code)

	_, err = accounts.Authenticate(ctx, "")
	require.ErrorAs(t, err, &f)

	idp.verifyErr = errors.New("provider unreachable")
	_, err = accounts.Authenticate(ctx, "token-"+user.CredentialRef)
	require.Error(t, err)
	assert.False(t, errors.As(err, &f))
}

func TestAuthenticateRejectsUnknownAndInactiveUsers(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	accounts := NewAccounts(store, idp, nil)

	uid, err := idp.CreateUser(ctx, "orphan@example.com", goodPassword, "Orphan")
	require.NoError(t, err)
	_, err = accounts.Authenticate(ctx, "token-"+uid)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "user is not registered", f.Message)

	idp.accounts["orphan@example.com"].admin = true
	_, err = store.InsertUser(ctx, &models.User{Name: "Orphan", Email: "orphan@example.com", Active: false, CredentialRef: uid})
	require.NoError(t, err)
	_, err = accounts.Authenticate(ctx, "token-"+uid)
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "user account is disabled", f.Message)
}

func TestAdminClaimIsCarriedIntoActor(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	accounts := NewAccounts(store, idp, nil)
	user := register(t, accounts, "Root", "root@example.com")
	idp.accounts["root@example.com"].admin = true

	actor, err := accounts.Authenticate(ctx, "token-"+user.CredentialRef)
	require.NoError(t, err)
	assert.True(t, actor.Admin)
}

func TestCachedIdentityStillChecksTheStoredUser(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	cache := &mapCache{actors: map[string]Actor{}}
	accounts := NewAccounts(store, idp, cache)
	user := register(t, accounts, "Ana", "ana@example.com")
	token := "token-" + user.CredentialRef

	_, err := accounts.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Contains(t, cache.actors, user.CredentialRef)

	require.NoError(t, store.DeleteUser(ctx, user.ID))
	actor, err := accounts.Authenticate(ctx, token)
	assert.Nil(t, actor)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, CodeUnauthenticated, f.Code)
	assert.Equal(t, "user is not registered", f.Message)
	assert.NotContains(t, cache.actors, user.CredentialRef)

	// Re-created under the same provider uid but disabled.
	_, err = store.InsertUser(ctx, &models.User{Name: "Ana", Email: "ana@example.com", Active: false, CredentialRef: user.CredentialRef})
	require.NoError(t, err)
	cache.actors[user.CredentialRef] = Actor{UserID: user.ID}
	_, err = accounts.Authenticate(ctx, token)
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "user account is disabled", f.Message)
}

func TestAdminClaimIsReevaluatedOnCacheHit(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	cache := &mapCache{actors: map[string]Actor{}}
	accounts := NewAccounts(store, idp, cache)
	user := register(t, accounts, "Root", "root@example.com")
	token := "token-" + user.CredentialRef

	idp.accounts["root@example.com"].admin = true
	actor, err := accounts.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, actor.Admin)

	idp.accounts["root@example.com"].admin = false
	actor, err = accounts.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.False(t, actor.Admin)
}

func TestLogoutRevokesAndEvicts(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	idp := newFakeProvider()
	cache := &mapCache{actors: map[string]Actor{}}
	accounts := NewAccounts(store, idp, cache)
	user := register(t, accounts, "Ana", "ana@example.com")

	actor, err := accounts.Authenticate(ctx, "token-"+user.CredentialRef)
	require.NoError(t, err)

	res, err := accounts.Logout(ctx, *actor)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{user.CredentialRef}, idp.revoked)
	assert.NotContains(t, cache.actors, user.CredentialRef)

	res, err = accounts.Me(ctx, *actor)
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.Data.(*models.User).ID)

	res, err = accounts.Me(ctx, Actor{UserID: "ghost"})
	assertFailure(t, res, err, CodeNotFound, LevelUser)
}
