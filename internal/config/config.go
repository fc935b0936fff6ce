package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables
	S3BucketName string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenDur   time.Duration

	// Verification-code settings.
	CodeTTL            time.Duration
	CodeResendCooldown time.Duration

	// Account-lifecycle settings.
	GracePeriod  time.Duration
	PurgeHourUTC int // hour of day (UTC) the purge sweep runs

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion      string
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts          string
	Sessions          string
	VerificationCodes string
	Restaurants       string
	Categories        string
	Reviews           string
	Favorites         string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Accounts:          getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Sessions:          getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			Restaurants:       getEnv("DYNAMO_TABLE_RESTAURANTS", "restaurants"),
			Categories:        getEnv("DYNAMO_TABLE_CATEGORIES", "categories"),
			Reviews:           getEnv("DYNAMO_TABLE_REVIEWS", "reviews"),
			Favorites:         getEnv("DYNAMO_TABLE_FAVORITES", "favorites"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "forkful-images"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenDur:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		CodeTTL:            time.Duration(getEnvInt("CODE_TTL_MINUTES", 5)) * time.Minute,
		CodeResendCooldown: time.Duration(getEnvInt("CODE_RESEND_COOLDOWN_SECONDS", 60)) * time.Second,

		GracePeriod:  time.Duration(getEnvInt("GRACE_PERIOD_DAYS", 30)) * 24 * time.Hour,
		PurgeHourUTC: getEnvInt("PURGE_HOUR_UTC", 4),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@forkful.app"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
