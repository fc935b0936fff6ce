package session

import (
	"context"
	"fmt"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/id"
	pkgtoken "github.com/forkful/api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Login    string `json:"login" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

type SecondFactorRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Code      string `json:"code" validate:"required"`
}

type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session

	// SecondFactorRequired is set for admin logins: the password checked out,
	// a one-time code went out, and no session exists until it is verified.
	SecondFactorRequired bool
	AccountID            string
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	CompleteSecondFactor(ctx context.Context, req SecondFactorRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type codeService interface {
	Issue(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error)
	Verify(ctx context.Context, identityKey, purpose, code string) (*domain.VerificationCode, error)
}

type jwtSigner interface {
	Sign(accountID, role, sessionID string) (string, error)
}

type service struct {
	sessionRepo     sessionStore
	accountRepo     accountStore
	codes           codeService
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
	now             func() time.Time
}

type ServiceDeps struct {
	SessionRepo     sessionStore
	AccountRepo     accountStore
	Codes           codeService
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
	Now             func() time.Time // defaults to time.Now
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessionRepo:     deps.SessionRepo,
		accountRepo:     deps.AccountRepo,
		codes:           deps.Codes,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
		now:             now,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	a, err := s.accountRepo.GetByUsername(ctx, req.Login)
	if err != nil {
		a, err = s.accountRepo.GetByEmail(ctx, req.Login)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
	}
	if err := checkLoginAllowed(a); err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	// Admin logins need the second factor before any session exists.
	if a.Role == domain.RoleAdmin {
		if _, err := s.codes.Issue(ctx, a.AccountID, domain.PurposeOperator2FA); err != nil {
			return nil, err
		}
		return &LoginResult{SecondFactorRequired: true, AccountID: a.AccountID}, nil
	}

	return s.createSession(ctx, a)
}

func (s *service) CompleteSecondFactor(ctx context.Context, req SecondFactorRequest) (*LoginResult, error) {
	if _, err := s.codes.Verify(ctx, req.AccountID, domain.PurposeOperator2FA, req.Code); err != nil {
		return nil, err
	}
	a, err := s.accountRepo.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := checkLoginAllowed(a); err != nil {
		return nil, err
	}
	if a.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("second factor only applies to admin accounts: %w", domain.ErrForbidden)
	}
	return s.createSession(ctx, a)
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	a, err := s.accountRepo.Get(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	// A deletion request suspends authentication for the whole grace window.
	if err := checkLoginAllowed(a); err != nil {
		return nil, err
	}
	sess.Account = a
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	if !sess.Enable || sess.RefreshExpiresAt < s.now().Unix() {
		return "", "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	a, err := s.accountRepo.Get(ctx, sess.AccountID)
	if err != nil {
		return "", "", err
	}
	if err := checkLoginAllowed(a); err != nil {
		return "", "", err
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := s.sessionRepo.Update(ctx, sess.SessionID, map[string]interface{}{
		"refresh_token":      newToken,
		"refresh_expires_at": s.now().UTC().Add(s.refreshTokenDur).Unix(),
	}); err != nil {
		return "", "", err
	}
	bearer, err := s.jwtProvider.Sign(a.AccountID, a.Role, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}

func (s *service) createSession(ctx context.Context, a *domain.Account) (*LoginResult, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		AccountID:        a.AccountID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(a.AccountID, a.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Account = a
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

// checkLoginAllowed refuses authentication for any non-active account.
// pending_deletion gets a precise message (not security-sensitive and the
// user needs to know recovery is possible); deleted looks like bad
// credentials.
func checkLoginAllowed(a *domain.Account) error {
	switch a.Status {
	case domain.StatusActive:
		return nil
	case domain.StatusPendingDeletion:
		return fmt.Errorf("account is pending deletion: %w", domain.ErrForbidden)
	default:
		return fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
}
