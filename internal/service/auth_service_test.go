package service

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/internal/testutil"
	"apart_backend/internal/util"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]uint
	ttl    time.Duration
}

func (m *memoryTokens) Save(_ context.Context, token string, userID uint, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]uint{}
	}
	m.tokens[token] = userID
	m.ttl = ttl
	return nil
}

func (m *memoryTokens) Consume(_ context.Context, token string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return 0, repository.ErrTokenNotFound
	}
	delete(m.tokens, token)
	return id, nil
}

type recordingMailer struct {
	to, url string
	notices []PendingNotice
}

func (r *recordingMailer) SendPasswordReset(_ context.Context, to, url string) error {
	r.to, r.url = to, url
	return nil
}

func (r *recordingMailer) SendPendingActivities(_ context.Context, notice PendingNotice) error {
	r.notices = append(r.notices, notice)
	return nil
}

func newAuthService(t *testing.T) (*AuthService, *memoryTokens, *recordingMailer) {
	t.Helper()
	db := testutil.NewDB(t)
	tokens := &memoryTokens{}
	mailer := &recordingMailer{}
	svc := NewAuthService(db, repository.NewUserRepository(db), repository.NewStudentRepository(db), tokens, mailer, testConfig())
	return svc, tokens, mailer
}

func registerAna(t *testing.T, svc *AuthService) *model.User {
	t.Helper()
	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username:  "ana",
		Email:     " Ana@Example.com ",
		Password:  "s3cret-pass",
		FirstName: "Ana",
		LastName:  "Lopez",
	})
	require.NoError(t, err)
	return user
}

func TestAuth_RegisterCreatesStudent(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	user := registerAna(t, svc)

	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, model.Student, user.Role)
	assert.NotEqual(t, "s3cret-pass", user.Password)

	student, err := svc.StudentRepo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, student)

	_, err = svc.Register(ctx, dto.RegisterRequest{Username: "other", Email: "ana@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
	_, err = svc.Register(ctx, dto.RegisterRequest{Username: "ana", Email: "new@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, util.ErrUsernameTaken)
}

func TestAuth_Login(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	user := registerAna(t, svc)

	token, got, err := svc.Login(ctx, "ANA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := util.ParseJWT(token, svc.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	_, _, err = svc.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ghost@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestAuth_PasswordResetIsSingleUse(t *testing.T) {
	svc, tokens, mailer := newAuthService(t)
	ctx := context.Background()
	registerAna(t, svc)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.url)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ana@example.com"))
	assert.Equal(t, "ana@example.com", mailer.to)
	assert.Equal(t, 48*time.Hour, tokens.ttl)
	require.True(t, strings.HasPrefix(mailer.url, "http://localhost:3000/reset-password/"))
	token := strings.TrimSuffix(strings.TrimPrefix(mailer.url, "http://localhost:3000/reset-password/"), "/")

	require.NoError(t, svc.ResetPassword(ctx, token, "brand-new-pass"))
	_, _, err := svc.Login(ctx, "ana@example.com", "brand-new-pass")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "again-pass-1"), util.ErrResetTokenInvalid)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "not-a-uuid", "again-pass-1"), util.ErrResetTokenInvalid)
}
