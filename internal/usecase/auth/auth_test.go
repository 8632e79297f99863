package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type nopLogger struct{}

func (nopLogger) Debug(message interface{}, args ...interface{}) {}
func (nopLogger) Info(message string, args ...interface{})       {}
func (nopLogger) Warn(message string, args ...interface{})       {}
func (nopLogger) Error(message interface{}, args ...interface{}) {}
func (nopLogger) Fatal(message interface{}, args ...interface{}) {}

type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entity.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	if _, ok := r.users[user.Username]; ok {
		return errs.ErrAlreadyExists
	}
	r.users[user.Username] = user

	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}

	return nil, errs.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	return u, nil
}

func TestAuth(t *testing.T) {
	ctx := context.Background()
	uc := New(newFakeUserRepo(), "test-secret", time.Hour, nopLogger{})

	user, err := uc.Register(ctx, "alice", "correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, "correct horse battery staple", user.PasswordHash)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := uc.Register(ctx, "alice", "another password")
		assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	})

	t.Run("login round trip", func(t *testing.T) {
		token, err := uc.Login(ctx, "alice", "correct horse battery staple")
		require.NoError(t, err)

		id, err := uc.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := uc.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := uc.Login(ctx, "bob", "whatever")
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := uc.ParseToken("not.a.token")
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("expired token", func(t *testing.T) {
		short := New(newFakeUserRepo(), "test-secret", -time.Minute, nopLogger{})
		_, err := short.Register(ctx, "carol", "some password here")
		require.NoError(t, err)

		token, err := short.Login(ctx, "carol", "some password here")
		require.NoError(t, err)

		_, err = uc.ParseToken(token)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := New(newFakeUserRepo(), "other-secret", time.Hour, nopLogger{})
		_, err := other.Register(ctx, "alice", "correct horse battery staple")
		require.NoError(t, err)

		token, err := other.Login(ctx, "alice", "correct horse battery staple")
		require.NoError(t, err)

		_, err = uc.ParseToken(token)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}
