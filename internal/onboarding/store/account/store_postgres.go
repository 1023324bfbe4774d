package account

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	"stoop/pkg/platform/sentinel"
)

// Schema creates the accounts table. It is idempotent.
//
//go:embed schema.sql
var Schema string

const pgUniqueViolation = "23505"

const selectAccount = `
	SELECT id, email, display_name, kind, pin_hash, phase,
		address_text, address_lat, address_lng, address_geocoded,
		business_name, business_category, business_description, business_website, business_phone,
		business_hours, business_neighborhoods,
		verification, email_confirmed_at, created_at, updated_at
	FROM accounts
`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists accounts in one row each, with the business profile
// embedded (JSONB hours, text[] neighborhoods).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Account) error {
	if a == nil {
		return fmt.Errorf("account is required")
	}
	row, err := toRow(a)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO accounts (
			id, email, display_name, kind, pin_hash, phase,
			address_text, address_lat, address_lng, address_geocoded,
			business_name, business_category, business_description, business_website, business_phone,
			business_hours, business_neighborhoods,
			verification, email_confirmed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = s.db.ExecContext(ctx, query,
		a.ID.String(), a.Email, a.DisplayName, string(a.Kind), a.PinHash, string(a.Phase),
		row.addressText, row.addressLat, row.addressLng, row.addressGeocoded,
		row.businessName, row.businessCategory, row.businessDescription, row.businessWebsite, row.businessPhone,
		row.businessHours, pq.Array(row.neighborhoods),
		row.verification, a.EmailConfirmedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("email %s: %w", a.Email, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, selectAccount+` WHERE id = $1`, accountID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, selectAccount+` WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account for %s: %w", email, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return a, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// and writes the result in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, accountID id.AccountID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {
	var result *models.Account
	err := s.inTx(ctx, func(q queryer) error {
		a, err := scanAccount(q.QueryRowContext(ctx, selectAccount+` WHERE id = $1 FOR UPDATE`, accountID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock account: %w", err)
		}
		if err := validate(a); err != nil {
			return err
		}
		mutate(a)
		if err := update(ctx, q, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(queryer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin account tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account tx: %w", err)
	}
	return nil
}

func update(ctx context.Context, q queryer, a *models.Account) error {
	row, err := toRow(a)
	if err != nil {
		return err
	}
	query := `
		UPDATE accounts SET
			display_name = $2, kind = $3, pin_hash = $4, phase = $5,
			address_text = $6, address_lat = $7, address_lng = $8, address_geocoded = $9,
			business_name = $10, business_category = $11, business_description = $12,
			business_website = $13, business_phone = $14, business_hours = $15, business_neighborhoods = $16,
			verification = $17, email_confirmed_at = $18, updated_at = $19
		WHERE id = $1
	`
	_, err = q.ExecContext(ctx, query,
		a.ID.String(), a.DisplayName, string(a.Kind), a.PinHash, string(a.Phase),
		row.addressText, row.addressLat, row.addressLng, row.addressGeocoded,
		row.businessName, row.businessCategory, row.businessDescription,
		row.businessWebsite, row.businessPhone, row.businessHours, pq.Array(row.neighborhoods),
		row.verification, a.EmailConfirmedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// accountRow holds the column values that need conversion from the model.
type accountRow struct {
	addressText         sql.NullString
	addressLat          sql.NullFloat64
	addressLng          sql.NullFloat64
	addressGeocoded     bool
	businessName        sql.NullString
	businessCategory    sql.NullString
	businessDescription string
	businessWebsite     string
	businessPhone       string
	businessHours       []byte
	neighborhoods       []string
	verification        []byte
}

func toRow(a *models.Account) (accountRow, error) {
	var row accountRow
	if a.Address != nil {
		row.addressText = sql.NullString{String: a.Address.Text, Valid: true}
		row.addressLat = sql.NullFloat64{Float64: a.Address.Lat, Valid: true}
		row.addressLng = sql.NullFloat64{Float64: a.Address.Lng, Valid: true}
		row.addressGeocoded = a.Address.Geocoded
	}
	if b := a.Business; b != nil {
		row.businessName = sql.NullString{String: b.Name, Valid: true}
		row.businessCategory = sql.NullString{String: string(b.Category), Valid: true}
		row.businessDescription = b.Description
		row.businessWebsite = b.Website
		row.businessPhone = b.Phone
		row.neighborhoods = b.Neighborhoods
		if b.Hours != nil {
			hours, err := json.Marshal(b.Hours)
			if err != nil {
				return accountRow{}, fmt.Errorf("encode business hours: %w", err)
			}
			row.businessHours = hours
		}
	}
	verification, err := json.Marshal(a.Verification)
	if err != nil {
		return accountRow{}, fmt.Errorf("encode verification: %w", err)
	}
	row.verification = verification
	return row, nil
}

func scanAccount(r *sql.Row) (*models.Account, error) {
	var (
		a                models.Account
		rawID            string
		kind, phase      string
		row              accountRow
		neighborhoods    pq.StringArray
		emailConfirmedAt sql.NullTime
	)
	err := r.Scan(
		&rawID, &a.Email, &a.DisplayName, &kind, &a.PinHash, &phase,
		&row.addressText, &row.addressLat, &row.addressLng, &row.addressGeocoded,
		&row.businessName, &row.businessCategory, &row.businessDescription, &row.businessWebsite, &row.businessPhone,
		&row.businessHours, &neighborhoods,
		&row.verification, &emailConfirmedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	accountID, err := id.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("decode account id: %w", err)
	}
	a.ID = accountID
	a.Kind = models.Kind(kind)
	if a.Phase, err = models.ParsePhase(phase); err != nil {
		return nil, err
	}
	if emailConfirmedAt.Valid {
		t := emailConfirmedAt.Time
		a.EmailConfirmedAt = &t
	}
	if row.addressText.Valid {
		a.Address = &models.Address{
			Text:     row.addressText.String,
			Lat:      row.addressLat.Float64,
			Lng:      row.addressLng.Float64,
			Geocoded: row.addressGeocoded,
		}
	}
	if row.businessName.Valid {
		b := &models.BusinessProfile{
			Name:        row.businessName.String,
			Category:    models.Category(row.businessCategory.String),
			Description: row.businessDescription,
			Website:     row.businessWebsite,
			Phone:       row.businessPhone,
		}
		if len(neighborhoods) > 0 {
			b.Neighborhoods = []string(neighborhoods)
		}
		if len(row.businessHours) > 0 {
			if err := json.Unmarshal(row.businessHours, &b.Hours); err != nil {
				return nil, fmt.Errorf("decode business hours: %w", err)
			}
		}
		a.Business = b
	}
	if len(row.verification) > 0 {
		if err := json.Unmarshal(row.verification, &a.Verification); err != nil {
			return nil, fmt.Errorf("decode verification: %w", err)
		}
	}
	return &a, nil
}
