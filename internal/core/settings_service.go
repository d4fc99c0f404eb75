package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SettingTaxRate is the settings key holding the sales tax rate as a fraction (0.21 = 21%).
const SettingTaxRate = "tax_rate"

// Setting is one key/value configuration entry.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsService is the flat key/value business configuration store.
type SettingsService interface {
	List(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	// Set upserts a key. Known keys are validated; tax_rate must be a decimal in [0, 1].
	Set(ctx context.Context, key, value string) (*Setting, error)
	// TaxRate reads tax_rate on every call. A missing or unparsable value yields 0.21.
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

type settingsService struct {
	q Querier
}

// NewSettingsService constructs a SettingsService backed by PostgreSQL.
func NewSettingsService(pool *pgxpool.Pool) SettingsService {
	return &settingsService{q: pool}
}

func (s *settingsService) List(ctx context.Context) ([]Setting, error) {
	rows, err := s.q.Query(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, translateDBError(err, "settings")
	}
	defer rows.Close()

	settings := []Setting{}
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan setting: %v", ErrInternal, err)
		}
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "settings")
	}
	return settings, nil
}

func (s *settingsService) Get(ctx context.Context, key string) (*Setting, error) {
	var st Setting
	err := s.q.QueryRow(ctx, `SELECT key, value, updated_at FROM settings WHERE key = $1`, key).
		Scan(&st.Key, &st.Value, &st.UpdatedAt)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("setting %q", key))
	}
	return &st, nil
}

func (s *settingsService) Set(ctx context.Context, key, value string) (*Setting, error) {
	if key == "" {
		return nil, &ValidationError{Message: "key is required", Fields: FieldErrors{"key": "cannot be blank"}}
	}
	if key == SettingTaxRate {
		if _, err := parseTaxRate(value); err != nil {
			return nil, err
		}
	}

	var st Setting
	err := s.q.QueryRow(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value, updated_at`,
		key, value,
	).Scan(&st.Key, &st.Value, &st.UpdatedAt)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("setting %q", key))
	}
	log.Info().Str("key", key).Str("value", value).Msg("setting updated")
	return &st, nil
}

func (s *settingsService) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	return taxRate(ctx, s.q)
}

// taxRate reads the configured rate through q so callers inside a transaction
// see the same snapshot as the rest of their work.
func taxRate(ctx context.Context, q Querier) (decimal.Decimal, error) {
	var raw string
	err := q.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, SettingTaxRate).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultTaxRate, nil
	}
	if err != nil {
		return decimal.Zero, translateDBError(err, "tax rate")
	}

	rate, err := parseTaxRate(raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("tax_rate setting is invalid, using default 0.21")
		return defaultTaxRate, nil
	}
	return rate, nil
}

func parseTaxRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, &ValidationError{
			Message: fmt.Sprintf("tax_rate %q must be a number between 0 and 1", raw),
			Fields:  FieldErrors{"value": "must be a number between 0 and 1"},
		}
	}
	return rate, nil
}
