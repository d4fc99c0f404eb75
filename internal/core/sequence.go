package core

import (
	"context"
	"fmt"
)

// Document kinds with independent yearly sequences.
const (
	sequenceQuote = "QUOTE"
	sequenceOrder = "ORDER"
)

// sequenceTables maps a kind to the table whose numbers seed its counter.
var sequenceTables = map[string]string{
	sequenceQuote: "quotes",
	sequenceOrder: "orders",
}

// nextNumber allocates the next <year>-<NNN> number for kind inside q's
// transaction. The row lock taken by the upsert serializes concurrent callers
// until commit, so two documents can never receive the same number. On the first
// allocation of a year the counter continues from the highest number already
// stored for that year.
func nextNumber(ctx context.Context, q Querier, kind string, year int) (string, error) {
	table, ok := sequenceTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown document sequence %q", ErrInternal, kind)
	}

	var last int
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (kind, year, last_number)
		VALUES ($1, $2, (
			SELECT COALESCE(MAX(split_part(number, '-', 2)::int), 0) + 1
			FROM `+table+`
			WHERE number LIKE $3 AND split_part(number, '-', 2) ~ '^[0-9]+$'
		))
		ON CONFLICT (kind, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`,
		kind, year, fmt.Sprintf("%d-%%", year),
	).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("%w: failed to allocate %s number: %v", ErrInternal, kind, err)
	}
	return FormatDocumentNumber(year, last), nil
}

// FormatDocumentNumber renders year and sequence as 2025-001. Sequences past 999
// simply grow wider.
func FormatDocumentNumber(year, seq int) string {
	return fmt.Sprintf("%d-%03d", year, seq)
}
