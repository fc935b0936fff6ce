package account

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername      = "username"
	fieldPhone         = "phone"
	fieldDisplayName   = "display_name"
	fieldAvatarKey     = "avatar_key"
	fieldEmailVerified = "email_verified"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error)
	UploadAvatar(ctx context.Context, accountID, filename string, r io.Reader, contentType string) error
	ConfirmEmail(ctx context.Context, email, code string) error

	// Lifecycle: active → pending_deletion → (active | deleted).
	RequestDeletion(ctx context.Context, accountID string, reason *string) (*domain.DeletionStatusView, error)
	Recover(ctx context.Context, accountID string) (*domain.DeletionStatusView, error)
	// RecoverByCredentials is the public recovery entry point: login is
	// refused while pending, so the owner proves identity with the password.
	RecoverByCredentials(ctx context.Context, login, password string) (*domain.DeletionStatusView, error)
	DeletionStatus(ctx context.Context, accountID string) (*domain.DeletionStatusView, error)
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
	MarkPendingDeletion(ctx context.Context, accountID string, at time.Time, reason *string) error
	Reactivate(ctx context.Context, accountID string, at time.Time) error
}

type sessionStore interface {
	DisableByAccount(ctx context.Context, accountID string) error
}

type codeService interface {
	Issue(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error)
	Verify(ctx context.Context, identityKey, purpose, code string) (*domain.VerificationCode, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type service struct {
	repo        accountStore
	sessionRepo sessionStore
	codes       codeService
	images      objectStore
	gracePeriod time.Duration
	now         func() time.Time
}

type ServiceDeps struct {
	AccountRepo AccountStore
	SessionRepo sessionStore
	Codes       codeService
	Images      objectStore
	GracePeriod time.Duration
	Now         func() time.Time // defaults to time.Now
}

// AccountStore aliases the store interface so callers outside the package
// can name it when wiring.
type AccountStore = accountStore

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        deps.AccountRepo,
		sessionRepo: deps.SessionRepo,
		codes:       deps.Codes,
		images:      deps.Images,
		gracePeriod: deps.GracePeriod,
		now:         now,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}
	// Kick off email-ownership proof. Issue failure is not fatal to
	// registration; the user can request a resend.
	if _, err := s.codes.Issue(ctx, a.Email, domain.PurposeEmailVerification); err != nil {
		slog.Warn("could not issue email verification code", "account_id", a.AccountID, "err", err)
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.Get(ctx, accountID)
}

func (s *service) Update(ctx context.Context, accountID string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	updates := map[string]interface{}{}
	if req.Username != nil {
		if existing, err := s.repo.GetByUsername(ctx, *req.Username); err == nil && existing.AccountID != accountID {
			return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
		}
		updates[fieldUsername] = *req.Username
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
	}
	if req.DisplayName != nil {
		updates[fieldDisplayName] = *req.DisplayName
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, accountID)
	}
	if err := s.repo.Update(ctx, accountID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, accountID)
}

func (s *service) UploadAvatar(ctx context.Context, accountID, filename string, r io.Reader, contentType string) error {
	key := "avatars/" + accountID + path.Ext(filename)
	if _, err := s.images.Upload(ctx, key, r, contentType); err != nil {
		return err
	}
	return s.repo.Update(ctx, accountID, map[string]interface{}{fieldAvatarKey: key})
}

func (s *service) ConfirmEmail(ctx context.Context, email, code string) error {
	if _, err := s.codes.Verify(ctx, email, domain.PurposeEmailVerification, code); err != nil {
		return err
	}
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, a.AccountID, map[string]interface{}{fieldEmailVerified: true})
}

func (s *service) RequestDeletion(ctx context.Context, accountID string, reason *string) (*domain.DeletionStatusView, error) {
	a, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusActive {
		return nil, fmt.Errorf("account is %s: %w", a.Status, domain.ErrAlreadyPending)
	}
	now := s.now().UTC()
	// The store re-checks status = active atomically, so a concurrent request
	// cannot double-apply.
	if err := s.repo.MarkPendingDeletion(ctx, accountID, now, reason); err != nil {
		return nil, err
	}
	// Suspend authentication for the grace window. The status flip already
	// refuses new logins; disabling live sessions cuts off issued tokens too.
	if err := s.sessionRepo.DisableByAccount(ctx, accountID); err != nil {
		slog.Warn("could not disable sessions after deletion request", "account_id", accountID, "err", err)
	}
	return s.view(accountID, domain.StatusPendingDeletion, &now, reason), nil
}

func (s *service) Recover(ctx context.Context, accountID string) (*domain.DeletionStatusView, error) {
	a, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPendingDeletion {
		return nil, fmt.Errorf("account is %s: %w", a.Status, domain.ErrNotPending)
	}
	now := s.now().UTC()
	// The window check does not depend on whether the purge sweep has run:
	// past the deadline the account is unrecoverable even if still unpurged.
	if a.DeletionRequestedAt == nil || now.After(a.DeletionRequestedAt.Add(s.gracePeriod)) {
		return nil, fmt.Errorf("grace period elapsed: %w", domain.ErrWindowExpired)
	}
	if err := s.repo.Reactivate(ctx, accountID, now); err != nil {
		return nil, err
	}
	return s.view(accountID, domain.StatusActive, nil, nil), nil
}

func (s *service) RecoverByCredentials(ctx context.Context, login, password string) (*domain.DeletionStatusView, error) {
	a, err := s.repo.GetByUsername(ctx, login)
	if err != nil {
		a, err = s.repo.GetByEmail(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.Recover(ctx, a.AccountID)
}

func (s *service) DeletionStatus(ctx context.Context, accountID string) (*domain.DeletionStatusView, error) {
	a, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.view(a.AccountID, a.Status, a.DeletionRequestedAt, a.DeletionReason), nil
}

func (s *service) view(accountID, status string, requestedAt *time.Time, reason *string) *domain.DeletionStatusView {
	v := &domain.DeletionStatusView{
		AccountID:           accountID,
		Status:              status,
		DeletionRequestedAt: requestedAt,
		DeletionReason:      reason,
	}
	if status == domain.StatusPendingDeletion && requestedAt != nil {
		remaining := s.gracePeriod - s.now().UTC().Sub(*requestedAt)
		if remaining < 0 {
			remaining = 0
		}
		// Round up: "1 day remaining" on the last partial day.
		v.DaysRemaining = int((remaining + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	}
	return v
}
