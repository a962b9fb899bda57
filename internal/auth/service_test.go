package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	byEmail map[string]*User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*User{}} }

func (f *fakeUsers) Create(_ context.Context, u *User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = "u-" + u.Email
	}
	cp := *u
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func TestRegisterHashesPassword(t *testing.T) {
	users := newFakeUsers()
	svc := NewService(users, "secret", time.Hour)

	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	stored := users.byEmail["ada@example.com"]
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
	assert.Equal(t, u.ID, stored.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeUsers(), "secret", time.Hour)

	_, err := svc.Register(context.Background(), "", "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Register(context.Background(), "Ada", "a@b.c", "")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeUsers(), "secret", time.Hour)

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Eve", "ada@example.com", "pw654321")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginIssuesParseableToken(t *testing.T) {
	svc := NewService(newFakeUsers(), "secret", time.Hour)
	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	// exp claim sits one TTL out
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	exp := time.Unix(int64(claims["exp"].(float64)), 0)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := NewService(newFakeUsers(), "secret", time.Hour)
	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// unknown email gives the same error, no account probing
	_, err = svc.Login(context.Background(), "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsForgedAndExpired(t *testing.T) {
	users := newFakeUsers()
	svc := NewService(users, "secret", time.Hour)
	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	// token signed with a different secret
	other := NewService(users, "other-secret", time.Hour)
	forged, err := other.Login(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)
	_, err = svc.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// already expired
	expiredSvc := NewService(users, "secret", -time.Minute)
	expired, err := expiredSvc.Login(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)
	_, err = expiredSvc.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
