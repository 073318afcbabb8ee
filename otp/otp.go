// Package otp issues the one-time codes that gate seller registration.
// Codes are handed to sellers out of band; this package only generates them.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Length is the number of digits in a generated code.
const Length = 6

// TTL is the validity window of a freshly issued code.
const TTL = 24 * time.Hour

// Generate returns a random numeric code of Length digits.
func Generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < Length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("otp generate: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n), nil
}
