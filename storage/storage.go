// Package storage is the persistence layer for one-time codes and
// registered marketplace accounts.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested row does not exist (or, for OTP
	// lookups, exists but is used or expired).
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyRegistered indicates a seller or buyer row already exists
	// for the Telegram account.
	ErrAlreadyRegistered = errors.New("storage: already registered")
)

// OTPRecord is a one-time seller registration code.
// A code is valid iff Used is false and ExpiresAt is in the future.
type OTPRecord struct {
	Code      string    `db:"otp_code"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
}

// NewSeller carries the fields collected by the registration flow.
type NewSeller struct {
	TelegramID   int64
	Name         string
	Username     string
	BusinessName string
	Email        string
	Phone        string
}

// NewBuyer carries the fields of a buyer account.
type NewBuyer struct {
	TelegramID int64
	Name       string
	Username   string
}

// SellerStore persists seller accounts.
type SellerStore interface {
	// SellerExists reports whether a seller row exists for the Telegram account.
	SellerExists(ctx context.Context, telegramID int64) (bool, error)
	// CreateSeller inserts a seller row. Returns ErrAlreadyRegistered when a
	// row for the same Telegram account already exists.
	CreateSeller(ctx context.Context, s NewSeller) error
}

// BuyerStore persists buyer accounts.
type BuyerStore interface {
	BuyerExists(ctx context.Context, telegramID int64) (bool, error)
	CreateBuyer(ctx context.Context, b NewBuyer) error
}

// OTPStore persists one-time registration codes.
type OTPStore interface {
	// SaveOTP stores a freshly issued code with its expiry.
	SaveOTP(ctx context.Context, code string, expiresAt time.Time) error
	// FindValidOTP returns the record for code when it is unused and
	// unexpired, ErrNotFound otherwise.
	FindValidOTP(ctx context.Context, code string) (OTPRecord, error)
	// MarkOTPUsed flips exactly one unused row for code to used. A second
	// call for the same code returns ErrNotFound.
	MarkOTPUsed(ctx context.Context, code string) error
}
