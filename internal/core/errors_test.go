package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, ErrConflict},
		{"check violation", &pgconn.PgError{Code: "23514"}, ErrValidation},
		{"invalid text", &pgconn.PgError{Code: "22P02"}, ErrValidation},
		{"other pg error", &pgconn.PgError{Code: "40001"}, ErrInternal},
		{"plain error", errors.New("connection reset"), ErrInternal},
		{"already classified", notFoundf("client 1 not found"), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDBError(tt.err, "thing")
			if !errors.Is(got, tt.want) {
				t.Errorf("translateDBError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if translateDBError(nil, "thing") != nil {
		t.Error("nil must stay nil")
	}
}

func TestNextNumberFormat(t *testing.T) {
	tests := []struct {
		year, seq int
		want      string
	}{
		{2025, 1, "2025-001"},
		{2025, 42, "2025-042"},
		{2026, 999, "2026-999"},
		{2026, 1000, "2026-1000"},
	}
	for _, tt := range tests {
		if got := FormatDocumentNumber(tt.year, tt.seq); got != tt.want {
			t.Errorf("FormatDocumentNumber(%d, %d) = %s, want %s", tt.year, tt.seq, got, tt.want)
		}
	}
}

func TestTransitions(t *testing.T) {
	if !canTransition(orderTransitions, OrderPending, OrderConfirmed) {
		t.Error("PENDING → CONFIRMED should be allowed")
	}
	if canTransition(orderTransitions, OrderDelivered, OrderCancelled) {
		t.Error("DELIVERED → CANCELLED should be rejected")
	}
	if canTransition(quoteTransitions, QuoteAccepted, QuoteDraft) {
		t.Error("ACCEPTED → DRAFT should be rejected")
	}
	if canTransition(quoteTransitions, QuoteDraft, QuoteConverted) {
		t.Error("CONVERTED is only reachable through conversion")
	}
}
