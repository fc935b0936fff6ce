package domain

import "time"

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses. The only legal transitions are
// active → pending_deletion (deletion request),
// pending_deletion → active (recovery within the grace window) and
// pending_deletion → deleted (purge sweep). deleted is terminal.
const (
	StatusActive          = "active"
	StatusPendingDeletion = "pending_deletion"
	StatusDeleted         = "deleted"
)

type Account struct {
	AccountID     string     `json:"id" dynamodbav:"account_id"`
	Username      string     `json:"username" dynamodbav:"username"`
	Email         string     `json:"email" dynamodbav:"email"`
	Phone         *string    `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash  string     `json:"-" dynamodbav:"password_hash"`
	Role          string     `json:"role" dynamodbav:"role"`
	DisplayName   string     `json:"display_name" dynamodbav:"display_name"`
	AvatarKey     string     `json:"-" dynamodbav:"avatar_key"`
	EmailVerified bool       `json:"email_verified" dynamodbav:"email_verified"`
	Status        string     `json:"status" dynamodbav:"status"`
	// DeletionRequestedAt is set iff Status is pending_deletion (RFC3339 in storage).
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty" dynamodbav:"deletion_requested_at,omitempty"`
	DeletionReason      *string    `json:"deletion_reason,omitempty" dynamodbav:"deletion_reason,omitempty"`
	CreatedAt           time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateAccountRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=32"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone"`
	DisplayName string  `json:"display_name" validate:"required"`
}

type UpdateAccountRequest struct {
	Username    *string `json:"username"`
	Phone       *string `json:"phone"`
	DisplayName *string `json:"display_name"`
}

// DeletionStatusView is a side-effect-free projection of an account's
// lifecycle state for the settings screen.
type DeletionStatusView struct {
	AccountID           string     `json:"account_id"`
	Status              string     `json:"status"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty"`
	DeletionReason      *string    `json:"deletion_reason,omitempty"`
	DaysRemaining       int        `json:"days_remaining"`
}

// SweepResult summarizes one purge pass. Ephemeral: surfaced in logs only,
// never persisted.
type SweepResult struct {
	Purged int       `json:"purged"`
	Failed int       `json:"failed"`
	RanAt  time.Time `json:"ran_at"`
}
