package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type rateService struct {
	pool      *pgxpool.Pool
	publisher EventPublisher
}

// NewRateService constructs a RateService. Bulk adjustments are announced on publisher.
func NewRateService(pool *pgxpool.Pool, publisher EventPublisher) RateService {
	return &rateService{pool: pool, publisher: publisher}
}

const rateColumns = `id, material, thickness, unit_price, unit_weight, updated_at`

func scanRate(row pgx.Row) (*RateEntry, error) {
	var r RateEntry
	if err := row.Scan(&r.ID, &r.Material, &r.Thickness, &r.UnitPrice, &r.UnitWeight, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *rateService) ListRates(ctx context.Context, material string) ([]RateEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+rateColumns+`
		FROM rate_entries
		WHERE ($1::text = '' OR material = $1)
		ORDER BY material, thickness`,
		material,
	)
	if err != nil {
		return nil, translateDBError(err, "rates")
	}
	defer rows.Close()

	rates := []RateEntry{}
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan rate: %v", ErrInternal, err)
		}
		rates = append(rates, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "rates")
	}
	return rates, nil
}

func (s *rateService) UpsertRate(ctx context.Context, input RateInput) (*RateEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	r, err := scanRate(s.pool.QueryRow(ctx, `
		INSERT INTO rate_entries (material, thickness, unit_price, unit_weight)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (material, thickness)
		DO UPDATE SET unit_price = EXCLUDED.unit_price, unit_weight = EXCLUDED.unit_weight, updated_at = NOW()
		RETURNING `+rateColumns,
		input.Material, input.Thickness, input.UnitPrice, input.UnitWeight,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("rate %s %s", input.Material, input.Thickness))
	}
	return r, nil
}

func (s *rateService) DeleteRate(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rate_entries WHERE id = $1`, id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("rate %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("rate %d not found", id)
	}
	return nil
}

func (s *rateService) BulkAdjust(ctx context.Context, material string, percentage decimal.Decimal) (*BulkAdjustResult, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, &ValidationError{
			Message: `material is required (use "ALL" for every material)`,
			Fields:  FieldErrors{"material": "cannot be blank"},
		}
	}
	all := strings.EqualFold(material, AllMaterials)
	if all {
		material = AllMaterials
	}

	factor := BulkFactor(percentage)
	if !factor.IsPositive() {
		log.Warn().
			Str("material", material).
			Str("percentage", percentage.String()).
			Msg("bulk adjust factor is not positive, prices will become zero or negative")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	var tag pgconn.CommandTag
	if all {
		tag, err = tx.Exec(ctx, `
			UPDATE rate_entries SET unit_price = unit_price * $1, updated_at = NOW()`,
			factor,
		)
	} else {
		tag, err = tx.Exec(ctx, `
			UPDATE rate_entries SET unit_price = unit_price * $1, updated_at = NOW()
			WHERE material = $2`,
			factor, material,
		)
	}
	if err != nil {
		return nil, translateDBError(err, "rates")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit bulk adjust: %v", ErrInternal, err)
	}

	result := &BulkAdjustResult{
		Material:   material,
		Percentage: percentage,
		Factor:     factor,
		Affected:   tag.RowsAffected(),
	}
	log.Info().
		Str("material", material).
		Str("percentage", percentage.String()).
		Int64("affected", result.Affected).
		Msg("rates bulk adjusted")

	publishAfterCommit(ctx, s.publisher, Event{
		Type:    EventRatesBulkAdjusted,
		Key:     material,
		Payload: result,
	})
	return result, nil
}
