package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// New generates a fixed-length numeric one-time code from crypto/rand.
// Codes are zero-padded so "004217" is as likely as any other value.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
