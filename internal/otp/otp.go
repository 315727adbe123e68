// Package otp generates and verifies the 6-digit one-time codes that prove
// physical handoff of an item. Codes are stored only as bcrypt hashes.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// CodeLength is the fixed width of a delivery code
const CodeLength = 6

// hashCost matches the work factor used for passwords
const hashCost = bcrypt.DefaultCost

var codeSpace = big.NewInt(1000000)

// GenerateCode returns a uniformly random 6-digit code as a fixed-width
// string, so leading zeros survive.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}

// Hash returns the bcrypt hash of a plaintext code
func Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether code matches the stored hash
func Verify(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
