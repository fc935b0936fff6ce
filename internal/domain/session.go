package domain

import "time"

type Session struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	AccountID        string    `json:"account_id" dynamodbav:"account_id"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"refresh_expires_at" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`

	// Account is populated on reads for the response payload; never stored.
	Account *Account `json:"account,omitempty" dynamodbav:"-"`
}
