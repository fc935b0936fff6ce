package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forkful/api/internal/domain"
	jwtinfra "github.com/forkful/api/internal/infrastructure/jwt"
	"github.com/forkful/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Register(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) Update(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, accountID, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) UploadAvatar(ctx context.Context, accountID, filename string, r io.Reader, contentType string) error {
	return m.Called(ctx, accountID, filename, r, contentType).Error(0)
}

func (m *mockAccountSvc) ConfirmEmail(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *mockAccountSvc) RequestDeletion(ctx context.Context, accountID string, reason *string) (*domain.DeletionStatusView, error) {
	args := m.Called(ctx, accountID, reason)
	if v, _ := args.Get(0).(*domain.DeletionStatusView); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) Recover(ctx context.Context, accountID string) (*domain.DeletionStatusView, error) {
	args := m.Called(ctx, accountID)
	if v, _ := args.Get(0).(*domain.DeletionStatusView); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) RecoverByCredentials(ctx context.Context, login, password string) (*domain.DeletionStatusView, error) {
	args := m.Called(ctx, login, password)
	if v, _ := args.Get(0).(*domain.DeletionStatusView); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) DeletionStatus(ctx context.Context, accountID string) (*domain.DeletionStatusView, error) {
	args := m.Called(ctx, accountID)
	if v, _ := args.Get(0).(*domain.DeletionStatusView); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// authedReq injects JWT claims directly into the request context, skipping
// the auth middleware.
func authedReq(method, target, accountID, role string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	claims := &jwtinfra.Claims{AccountID: accountID, Role: role, SessionID: "sess-1"}
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, claims)
	return r.WithContext(ctx)
}

// chiRouterFor mounts the handler's routed endpoints so URL params resolve.
func chiRouterFor(t *testing.T, h *AccountHandler) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/accounts/{id}", h.Get)
	return r
}

// --- tests ---

func TestRegister_Created(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	req := domain.CreateAccountRequest{
		Username: "carla", Password: "hunter2-hunter2",
		Email: "carla@example.com", DisplayName: "Carla",
	}
	svc.On("Register", mock.Anything, req).Return(&domain.Account{
		AccountID: "acc-1", Username: "carla", Status: domain.StatusActive,
	}, nil)

	body, _ := json.Marshal(req)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var got domain.Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "acc-1", got.AccountID)
}

func TestRegister_ValidationRejectsShortPassword(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	body := []byte(`{"username":"carla","password":"short","email":"carla@example.com","display_name":"Carla"}`)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_Conflict(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)

	body := []byte(`{"username":"carla","password":"hunter2-hunter2","email":"carla@example.com","display_name":"Carla"}`)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestConfirmEmail_BadCode_GenericMessage(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	svc.On("ConfirmEmail", mock.Anything, "carla@example.com", "000000").Return(domain.ErrCodeMismatch)

	body := []byte(`{"email":"carla@example.com","code":"000000"}`)
	rr := httptest.NewRecorder()
	h.ConfirmEmail(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts/confirm-email", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "invalid or expired code", env.Error)
}

func TestConfirmEmail_ExpiredCode_SameGenericMessage(t *testing.T) {
	// Expired and mismatched codes must be indistinguishable to the caller.
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	svc.On("ConfirmEmail", mock.Anything, "carla@example.com", "123456").Return(domain.ErrCodeExpired)

	body := []byte(`{"email":"carla@example.com","code":"123456"}`)
	rr := httptest.NewRecorder()
	h.ConfirmEmail(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts/confirm-email", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "invalid or expired code", env.Error)
}

func TestRequestDeletion_Accepted(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	requestedAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.On("RequestDeletion", mock.Anything, "acc-1", (*string)(nil)).Return(&domain.DeletionStatusView{
		AccountID: "acc-1", Status: domain.StatusPendingDeletion,
		DeletionRequestedAt: &requestedAt, DaysRemaining: 30,
	}, nil)

	rr := httptest.NewRecorder()
	h.RequestDeletion(rr, authedReq(http.MethodPost, "/v1/accounts/me/deletion", "acc-1", "user", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	var view domain.DeletionStatusView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, 30, view.DaysRemaining)
}

func TestRequestDeletion_AlreadyPending_Conflict(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	svc.On("RequestDeletion", mock.Anything, "acc-1", (*string)(nil)).Return(nil, domain.ErrAlreadyPending)

	rr := httptest.NewRecorder()
	h.RequestDeletion(rr, authedReq(http.MethodPost, "/v1/accounts/me/deletion", "acc-1", "user", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRecover_WindowExpired_Gone(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	svc.On("RecoverByCredentials", mock.Anything, "carla", "hunter2-hunter2").Return(nil, domain.ErrWindowExpired)

	body := []byte(`{"login":"carla","password":"hunter2-hunter2"}`)
	rr := httptest.NewRecorder()
	h.Recover(rr, httptest.NewRequest(http.MethodPost, "/v1/accounts/recover", bytes.NewReader(body)))

	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestGet_OtherAccount_Forbidden(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	r := chiRouterFor(t, h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedReq(http.MethodGet, "/accounts/acc-2", "acc-1", "user", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGet_Admin_CanViewAnyAccount(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)

	svc.On("Get", mock.Anything, "acc-2").Return(&domain.Account{AccountID: "acc-2"}, nil)

	r := chiRouterFor(t, h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedReq(http.MethodGet, "/accounts/acc-2", "acc-1", domain.RoleAdmin, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}
