package user

import (
	"context"
	"testing"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users    map[string]*User
	sessions map[string]*Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]*User{}, sessions: map[string]*Session{}}
}

func (r *fakeRepo) CreateUser(_ context.Context, u *User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeRepo) GetUser(_ context.Context, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepo) CreateSession(_ context.Context, s *Session) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeRepo) GetSession(_ context.Context, id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *fakeRepo) DeleteSession(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *fakeRepo) DeleteSessionsByUser(_ context.Context, userID string) error {
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func newTestUserService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo), repo
}

// ============================================
// Register Tests
// ============================================

func TestService_Register(t *testing.T) {
	svc, repo := newTestUserService()

	u, err := svc.Register(context.Background(), " Ada@Example.com ", "password123", "Ada")

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "ada", u.Username)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.Len(t, repo.users, 1)
}

func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		userName string
		want     error
	}{
		{"bad email", "ada", "password123", "Ada", ErrInvalidEmail},
		{"missing name", "ada@example.com", "password123", " ", ErrInvalidName},
		{"short password", "ada@example.com", "short", "Ada", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestUserService()
			_, err := svc.Register(context.Background(), tt.email, tt.password, tt.userName)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "ada@example.com", "password123", "Ada")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ADA@example.com", "password456", "Ada Again")

	assert.ErrorIs(t, err, ErrEmailTaken)
}

// ============================================
// Authenticate Tests
// ============================================

func TestService_Authenticate(t *testing.T) {
	svc, repo := newTestUserService()
	ctx := context.Background()
	registered, err := svc.Register(ctx, "ada@example.com", "password123", "Ada")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "ADA@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	repo.users[registered.ID].IsActive = false
	_, err = svc.Authenticate(ctx, "ada@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserDeactivated)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestService_EnsureAdmin(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	admin, created, err := svc.EnsureAdmin(ctx, "root@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, admin.IsAdmin())

	again, created, err := svc.EnsureAdmin(ctx, "root@example.com", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
}

// ============================================
// Session Tests
// ============================================

func TestService_Sessions(t *testing.T) {
	svc, repo := newTestUserService()
	ctx := context.Background()
	u, err := svc.Register(ctx, "ada@example.com", "password123", "Ada")
	require.NoError(t, err)

	sess, err := svc.StartSession(ctx, u, "refresh-token", time.Now().Add(time.Hour), "127.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEqual(t, "refresh-token", sess.RefreshTokenHash)

	resumed, err := svc.ResumeSession(ctx, sess.ID, "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, u.ID, resumed.ID)
	assert.Empty(t, repo.sessions, "resumed session is consumed")

	_, err = svc.ResumeSession(ctx, sess.ID, "refresh-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_ResumeSession_Rejects(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()
	u, _ := svc.Register(ctx, "ada@example.com", "password123", "Ada")

	wrong, _ := svc.StartSession(ctx, u, "token-a", time.Now().Add(time.Hour), "", "")
	_, err := svc.ResumeSession(ctx, wrong.ID, "token-b")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	expired, _ := svc.StartSession(ctx, u, "token-a", time.Now().Add(-time.Minute), "", "")
	_, err = svc.ResumeSession(ctx, expired.ID, "token-a")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
}

func TestService_EndSessions(t *testing.T) {
	svc, repo := newTestUserService()
	ctx := context.Background()
	u, _ := svc.Register(ctx, "ada@example.com", "password123", "Ada")
	_, _ = svc.StartSession(ctx, u, "a", time.Now().Add(time.Hour), "", "")
	_, _ = svc.StartSession(ctx, u, "b", time.Now().Add(time.Hour), "", "")

	require.NoError(t, svc.EndSessions(ctx, u.ID))
	assert.Empty(t, repo.sessions)
}
