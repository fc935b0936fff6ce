package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

type mockCodeService struct{ mock.Mock }

func (m *mockCodeService) Issue(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error) {
	args := m.Called(ctx, identityKey, purpose)
	if v, _ := args.Get(0).(*domain.VerificationCode); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeService) Verify(ctx context.Context, identityKey, purpose, code string) (*domain.VerificationCode, error) {
	args := m.Called(ctx, identityKey, purpose, code)
	if v, _ := args.Get(0).(*domain.VerificationCode); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(accountID, role, sessionID string) (string, error) {
	args := m.Called(accountID, role, sessionID)
	return args.String(0), args.Error(1)
}

// --- fixtures ---

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

type fixture struct {
	accounts *mockAccountStore
	sessions *mockSessionStore
	codes    *mockCodeService
	signer   *mockSigner
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		accounts: &mockAccountStore{},
		sessions: &mockSessionStore{},
		codes:    &mockCodeService{},
		signer:   &mockSigner{},
	}
	f.svc = NewService(ServiceDeps{
		SessionRepo:     f.sessions,
		AccountRepo:     f.accounts,
		Codes:           f.codes,
		JWTProvider:     f.signer,
		RefreshTokenDur: 30 * 24 * time.Hour,
		Now:             func() time.Time { return testNow },
	})
	return f
}

func activeUser(t *testing.T) *domain.Account {
	return &domain.Account{
		AccountID:    "acc-1",
		Username:     "carla",
		Email:        "carla@example.com",
		PasswordHash: hash(t, "hunter2-hunter2"),
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
	}
}

// --- tests ---

func TestLogin_ByUsername(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	f.accounts.On("GetByUsername", mock.Anything, "carla").Return(a, nil)
	f.sessions.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.signer.On("Sign", "acc-1", domain.RoleUser, mock.Anything).Return("bearer-jwt", nil)

	res, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	assert.False(t, res.SecondFactorRequired)
	assert.Equal(t, "bearer-jwt", res.Bearer)
	assert.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, res.Session)
	assert.True(t, res.Session.Enable)
	assert.Equal(t, "acc-1", res.Session.AccountID)
}

func TestLogin_FallsBackToEmailLookup(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	f.accounts.On("GetByUsername", mock.Anything, "carla@example.com").Return(nil, domain.ErrNotFound)
	f.accounts.On("GetByEmail", mock.Anything, "carla@example.com").Return(a, nil)
	f.sessions.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.signer.On("Sign", "acc-1", domain.RoleUser, mock.Anything).Return("bearer-jwt", nil)

	res, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla@example.com", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "bearer-jwt", res.Bearer)
}

func TestLogin_UnknownAccount(t *testing.T) {
	f := newFixture()
	f.accounts.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	f.accounts.On("GetByEmail", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Login(context.Background(), LoginRequest{Login: "ghost", Password: "whatever1"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture()
	f.accounts.On("GetByUsername", mock.Anything, "carla").Return(activeUser(t), nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla", Password: "not-the-password"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_PendingDeletion_Refused(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	a.Status = domain.StatusPendingDeletion
	f.accounts.On("GetByUsername", mock.Anything, "carla").Return(a, nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla", Password: "hunter2-hunter2"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_DeletedAccount_LooksLikeBadCredentials(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	a.Status = domain.StatusDeleted
	f.accounts.On("GetByUsername", mock.Anything, "carla").Return(a, nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla", Password: "hunter2-hunter2"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_Admin_RequiresSecondFactor(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	a.Role = domain.RoleAdmin
	f.accounts.On("GetByUsername", mock.Anything, "carla").Return(a, nil)
	f.codes.On("Issue", mock.Anything, "acc-1", domain.PurposeOperator2FA).
		Return(&domain.VerificationCode{IdentityKey: "acc-1"}, nil)

	res, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	assert.True(t, res.SecondFactorRequired)
	assert.Equal(t, "acc-1", res.AccountID)
	assert.Empty(t, res.Bearer)
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_Admin_WrongPassword_NoCodeIssued(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	a.Role = domain.RoleAdmin
	f.accounts.On("GetByUsername", mock.Anything, "carla").Return(a, nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Login: "carla", Password: "wrong-password"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.codes.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteSecondFactor_HappyPath(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	a.Role = domain.RoleAdmin
	f.codes.On("Verify", mock.Anything, "acc-1", domain.PurposeOperator2FA, "123456").
		Return(&domain.VerificationCode{IdentityKey: "acc-1", Consumed: true}, nil)
	f.accounts.On("Get", mock.Anything, "acc-1").Return(a, nil)
	f.sessions.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.signer.On("Sign", "acc-1", domain.RoleAdmin, mock.Anything).Return("admin-jwt", nil)

	res, err := f.svc.CompleteSecondFactor(context.Background(), SecondFactorRequest{AccountID: "acc-1", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "admin-jwt", res.Bearer)
	assert.False(t, res.SecondFactorRequired)
}

func TestCompleteSecondFactor_BadCode(t *testing.T) {
	f := newFixture()
	f.codes.On("Verify", mock.Anything, "acc-1", domain.PurposeOperator2FA, "000000").
		Return(nil, domain.ErrCodeMismatch)

	_, err := f.svc.CompleteSecondFactor(context.Background(), SecondFactorRequest{AccountID: "acc-1", Code: "000000"})
	assert.True(t, errors.Is(err, domain.ErrCodeMismatch))
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestGetCurrent_PendingDeletion_SuspendsSession(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	a.Status = domain.StatusPendingDeletion
	f.sessions.On("Get", mock.Anything, "sess-1").Return(&domain.Session{
		SessionID: "sess-1", AccountID: "acc-1", Enable: true,
	}, nil)
	f.accounts.On("Get", mock.Anything, "acc-1").Return(a, nil)

	_, err := f.svc.GetCurrent(context.Background(), "sess-1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestGetCurrent_DisabledSession(t *testing.T) {
	f := newFixture()
	f.sessions.On("Get", mock.Anything, "sess-1").Return(&domain.Session{
		SessionID: "sess-1", AccountID: "acc-1", Enable: false,
	}, nil)

	_, err := f.svc.GetCurrent(context.Background(), "sess-1")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newFixture()
	a := activeUser(t)
	f.sessions.On("GetByRefreshToken", mock.Anything, "old-token").Return(&domain.Session{
		SessionID: "sess-1", AccountID: "acc-1", Enable: true,
		RefreshToken: "old-token", RefreshExpiresAt: testNow.Add(time.Hour).Unix(),
	}, nil)
	f.accounts.On("Get", mock.Anything, "acc-1").Return(a, nil)
	f.sessions.On("Update", mock.Anything, "sess-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		tok, ok := u["refresh_token"].(string)
		return ok && tok != "" && tok != "old-token"
	})).Return(nil)
	f.signer.On("Sign", "acc-1", domain.RoleUser, "sess-1").Return("fresh-jwt", nil)

	bearer, newToken, err := f.svc.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-jwt", bearer)
	assert.NotEqual(t, "old-token", newToken)
	f.sessions.AssertExpectations(t)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	f := newFixture()
	f.sessions.On("GetByRefreshToken", mock.Anything, "old-token").Return(&domain.Session{
		SessionID: "sess-1", AccountID: "acc-1", Enable: true,
		RefreshExpiresAt: testNow.Add(-time.Minute).Unix(),
	}, nil)

	_, _, err := f.svc.Refresh(context.Background(), "old-token")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_DisablesSession(t *testing.T) {
	f := newFixture()
	f.sessions.On("Update", mock.Anything, "sess-1", map[string]interface{}{"enable": false}).Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), "sess-1"))
	f.sessions.AssertExpectations(t)
}
