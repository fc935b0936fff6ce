package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forkful/api/internal/domain"
	"github.com/forkful/api/internal/pkg/otp"
	"github.com/forkful/api/internal/pkg/validate"
)

// Service issues and verifies short-lived one-time codes. A code is keyed by
// (identity key, purpose): the email address for email-ownership proof, the
// account id for the admin second factor. Issuing overwrites any prior code
// for the key pair, so exactly one code can be active at a time.
type Service interface {
	Issue(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error)
	Verify(ctx context.Context, identityKey, purpose, code string) (*domain.VerificationCode, error)
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.VerificationCode) error
	Get(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error)
	Consume(ctx context.Context, identityKey, purpose, code string, now int64) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	repo     verificationStore
	accounts accountStore
	mailer   mailer
	sms      smsSender
	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
}

type ServiceDeps struct {
	VerificationRepo verificationStore
	AccountRepo      accountStore
	Mailer           mailer
	SMSSender        smsSender
	CodeTTL          time.Duration
	ResendCooldown   time.Duration
	Now              func() time.Time // defaults to time.Now
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     deps.VerificationRepo,
		accounts: deps.AccountRepo,
		mailer:   deps.Mailer,
		sms:      deps.SMSSender,
		ttl:      deps.CodeTTL,
		cooldown: deps.ResendCooldown,
		now:      now,
	}
}

func (s *service) Issue(ctx context.Context, identityKey, purpose string) (*domain.VerificationCode, error) {
	if err := validateKey(identityKey, purpose); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	// Resend cooldown: if an unconsumed code for this key was issued moments
	// ago, refuse to mint another one.
	if existing, err := s.repo.Get(ctx, identityKey, purpose); err == nil {
		if !existing.Consumed && now.Unix()-existing.IssuedAt < int64(s.cooldown.Seconds()) {
			return nil, fmt.Errorf("code requested too recently: %w", domain.ErrRateLimited)
		}
	}

	code, err := otp.New()
	if err != nil {
		return nil, err
	}
	v := &domain.VerificationCode{
		IdentityKey: identityKey,
		Purpose:     purpose,
		Code:        code,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	}
	// Put overwrites the prior item for this key pair: the old code is
	// superseded in the same write that persists the new one.
	if err := s.repo.Put(ctx, v); err != nil {
		return nil, err
	}

	// Fire-and-forget delivery. A transport failure is logged and never fails
	// the issuing call: the stored code stays usable through a fallback channel.
	go s.dispatch(context.WithoutCancel(ctx), v)

	return v, nil
}

func (s *service) Verify(ctx context.Context, identityKey, purpose, code string) (*domain.VerificationCode, error) {
	if err := validateKey(identityKey, purpose); err != nil {
		return nil, err
	}
	if len(code) != otp.CodeLength {
		return nil, fmt.Errorf("malformed code: %w", domain.ErrCodeMismatch)
	}

	v, err := s.repo.Get(ctx, identityKey, purpose)
	if err != nil {
		return nil, err
	}
	if v.Consumed {
		return nil, fmt.Errorf("code already used: %w", domain.ErrNotFound)
	}
	if s.now().Unix() >= v.ExpiresAt {
		return nil, fmt.Errorf("code past expiry: %w", domain.ErrCodeExpired)
	}
	if !otp.Equal(v.Code, code) {
		return nil, fmt.Errorf("wrong code: %w", domain.ErrCodeMismatch)
	}
	// The conditional consume re-checks value, consumption and expiry in the
	// store, so of two concurrent calls exactly one gets here and wins.
	if err := s.repo.Consume(ctx, identityKey, purpose, code, s.now().Unix()); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) dispatch(ctx context.Context, v *domain.VerificationCode) {
	to, phone, name := s.resolveDestination(ctx, v)
	if to == "" {
		slog.Error("no delivery destination for verification code",
			"identity_key", v.IdentityKey, "purpose", v.Purpose)
		return
	}
	subject, body := composeMessage(v.Purpose, v.Code, name)
	err := s.mailer.SendEmail(to, subject, body)
	if err == nil {
		return
	}
	slog.Error("verification code email dispatch failed",
		"identity_key", v.IdentityKey, "purpose", v.Purpose, "err", err)
	if phone != nil && s.sms != nil {
		if err := s.sms.SendSMS(ctx, *phone, body); err != nil {
			slog.Error("verification code SMS dispatch failed",
				"identity_key", v.IdentityKey, "purpose", v.Purpose, "err", err)
		}
	}
}

func (s *service) resolveDestination(ctx context.Context, v *domain.VerificationCode) (email string, phone *string, name string) {
	if v.Purpose == domain.PurposeEmailVerification {
		return v.IdentityKey, nil, ""
	}
	a, err := s.accounts.Get(ctx, v.IdentityKey)
	if err != nil {
		slog.Error("could not resolve account for code dispatch",
			"identity_key", v.IdentityKey, "purpose", v.Purpose, "err", err)
		return "", nil, ""
	}
	return a.Email, a.Phone, a.DisplayName
}

func composeMessage(purpose, code, name string) (subject, body string) {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	switch purpose {
	case domain.PurposeOperator2FA:
		return "Your Forkful admin login code",
			fmt.Sprintf("%s,\n\nYour admin login code is %s. It expires in a few minutes.", greeting, code)
	default:
		return "Confirm your email address",
			fmt.Sprintf("%s,\n\nYour confirmation code is %s. It expires in a few minutes.", greeting, code)
	}
}

func validateKey(identityKey, purpose string) error {
	if !domain.ValidPurpose(purpose) {
		return fmt.Errorf("unknown code purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	if identityKey == "" {
		return fmt.Errorf("identity key required: %w", domain.ErrBadRequest)
	}
	if purpose == domain.PurposeEmailVerification {
		if err := validate.Email(identityKey); err != nil {
			return fmt.Errorf("malformed email: %w", domain.ErrBadRequest)
		}
	}
	return nil
}
