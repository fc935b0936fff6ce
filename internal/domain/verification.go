package domain

// Verification-code purposes. One active code may exist per
// (identity_key, purpose) pair at any instant.
const (
	PurposeEmailVerification = "email_verification"
	PurposeOperator2FA       = "operator_2fa"
)

// VerificationCode is a short-lived one-time code.
// PK: identity_key (email for email_verification, account id for operator_2fa),
// SK: purpose. ExpiresAt is a Unix timestamp doubling as the DynamoDB TTL
// attribute. Issuing a new code for the same key pair overwrites the item,
// so a stale code is unverifiable the moment a resend happens.
type VerificationCode struct {
	IdentityKey string `json:"identity_key" dynamodbav:"identity_key"`
	Purpose     string `json:"purpose" dynamodbav:"purpose"`
	Code        string `json:"-" dynamodbav:"code"`
	IssuedAt    int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt   int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Consumed    bool   `json:"consumed" dynamodbav:"consumed"`
}

// ValidPurpose reports whether p is a known code purpose.
func ValidPurpose(p string) bool {
	return p == PurposeEmailVerification || p == PurposeOperator2FA
}
