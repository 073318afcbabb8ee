package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// Postgres implements SellerStore, BuyerStore and OTPStore on top of sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// SellerExists reports whether a seller row exists for the Telegram account.
func (p *Postgres) SellerExists(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM sellers WHERE telegram_id = $1)`, telegramID)
	if err != nil {
		return false, fmt.Errorf("seller exists: %w", err)
	}
	return exists, nil
}

// CreateSeller inserts a seller row, mapping unique violations to
// ErrAlreadyRegistered.
func (p *Postgres) CreateSeller(ctx context.Context, s NewSeller) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sellers (telegram_id, name, username, business_name, email, phone)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.TelegramID, s.Name, s.Username, s.BusinessName, s.Email, s.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("create seller: %w", err)
	}
	return nil
}

// BuyerExists reports whether a buyer row exists for the Telegram account.
func (p *Postgres) BuyerExists(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM buyers WHERE telegram_id = $1)`, telegramID)
	if err != nil {
		return false, fmt.Errorf("buyer exists: %w", err)
	}
	return exists, nil
}

// CreateBuyer inserts a buyer row, mapping unique violations to
// ErrAlreadyRegistered.
func (p *Postgres) CreateBuyer(ctx context.Context, b NewBuyer) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO buyers (telegram_id, name, username) VALUES ($1, $2, $3)`,
		b.TelegramID, b.Name, b.Username)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("create buyer: %w", err)
	}
	return nil
}

// SaveOTP stores a freshly issued code with its expiry.
func (p *Postgres) SaveOTP(ctx context.Context, code string, expiresAt time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO seller_otps (otp_code, expires_at, used) VALUES ($1, $2, FALSE)`,
		code, expiresAt)
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// FindValidOTP returns the record for code when it is unused and unexpired.
func (p *Postgres) FindValidOTP(ctx context.Context, code string) (OTPRecord, error) {
	var rec OTPRecord
	err := p.db.GetContext(ctx, &rec,
		`SELECT otp_code, expires_at, used FROM seller_otps
		 WHERE otp_code = $1 AND used = FALSE AND expires_at > NOW()
		 LIMIT 1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return OTPRecord{}, ErrNotFound
	}
	if err != nil {
		return OTPRecord{}, fmt.Errorf("find otp: %w", err)
	}
	return rec, nil
}

// MarkOTPUsed flips exactly one unused row to used. The used = FALSE guard
// makes the transition single-shot even under concurrent callers.
func (p *Postgres) MarkOTPUsed(ctx context.Context, code string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE seller_otps SET used = TRUE WHERE otp_code = $1 AND used = FALSE`, code)
	if err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
