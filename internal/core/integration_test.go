package core_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"workshop-manager/internal/core"
	"workshop-manager/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	files, err := migrations.Files()
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	for _, name := range files {
		sql, err := migrations.FS.ReadFile(name)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("Failed to apply migration %s: %v", name, err)
		}
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE order_lines, orders, quote_lines, quotes, document_sequences,
			special_prices, discount_tiers, discount_rules, margin_rules, rate_entries,
			products, clients, suppliers RESTART IDENTITY CASCADE;

		UPDATE settings SET value = '0.21' WHERE key = 'tax_rate';

		INSERT INTO clients (code, name, tier) VALUES
		('C001', 'Carpinteria Norte', ''),
		('C002', 'Reformas Sur',      'WHOLESALE');

		INSERT INTO products (code, name, material, category, thickness, unit_cost) VALUES
		('PVC-5',  'PVC sheet 5mm',       'PVC', 'PVC', 5, 10.00),
		('PVC-10', 'PVC sheet 10mm',      'PVC', 'PVC', 10, 0),
		('ALU-3',  'Aluminium panel 3mm', 'ALU', 'ALU', 3, 0);

		INSERT INTO rate_entries (material, thickness, unit_price, unit_weight) VALUES
		('PVC', 5,  10.00, 1.2),
		('PVC', 10, 18.00, 2.4),
		('PVC', 15, 25.00, 3.6),
		('ALU', 3,  40.00, 8.1);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestRateService_BulkAdjust(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := core.NewRateService(pool, pub)

	priceOf := func(material string, thickness int) decimal.Decimal {
		t.Helper()
		var p decimal.Decimal
		if err := pool.QueryRow(ctx,
			"SELECT unit_price FROM rate_entries WHERE material = $1 AND thickness = $2",
			material, thickness).Scan(&p); err != nil {
			t.Fatalf("read price: %v", err)
		}
		return p
	}

	t.Run("material filter only touches that material", func(t *testing.T) {
		res, err := svc.BulkAdjust(ctx, "PVC", dec("10"))
		if err != nil {
			t.Fatalf("BulkAdjust: %v", err)
		}
		if res.Affected != 3 {
			t.Errorf("expected 3 PVC rows, got %d", res.Affected)
		}
		if got := priceOf("PVC", 5); !got.Equal(dec("11")) {
			t.Errorf("PVC 5 = %s, want 11", got)
		}
		if got := priceOf("ALU", 3); !got.Equal(dec("40")) {
			t.Errorf("ALU must be unchanged, got %s", got)
		}
	})

	t.Run("zero percent is a no-op", func(t *testing.T) {
		before := priceOf("PVC", 10)
		res, err := svc.BulkAdjust(ctx, "all", decimal.Zero)
		if err != nil {
			t.Fatalf("BulkAdjust: %v", err)
		}
		if res.Affected != 4 {
			t.Errorf("expected 4 rows, got %d", res.Affected)
		}
		if got := priceOf("PVC", 10); !got.Equal(before) {
			t.Errorf("price changed from %s to %s", before, got)
		}
	})

	t.Run("minus one hundred zeroes prices", func(t *testing.T) {
		if _, err := svc.BulkAdjust(ctx, "ALU", dec("-100")); err != nil {
			t.Fatalf("BulkAdjust: %v", err)
		}
		if got := priceOf("ALU", 3); !got.IsZero() {
			t.Errorf("ALU 3 = %s, want 0", got)
		}
	})

	t.Run("below minus one hundred goes negative", func(t *testing.T) {
		if _, err := svc.BulkAdjust(ctx, "PVC", dec("-150")); err != nil {
			t.Fatalf("BulkAdjust: %v", err)
		}
		if got := priceOf("PVC", 5); !got.IsNegative() {
			t.Errorf("expected a negative price, got %s", got)
		}
	})

	t.Run("unknown material affects nothing", func(t *testing.T) {
		res, err := svc.BulkAdjust(ctx, "PVC'; DROP TABLE rate_entries; --", dec("10"))
		if err != nil {
			t.Fatalf("BulkAdjust: %v", err)
		}
		if res.Affected != 0 {
			t.Errorf("expected 0 rows, got %d", res.Affected)
		}
	})

	t.Run("blank material is rejected", func(t *testing.T) {
		_, err := svc.BulkAdjust(ctx, "  ", dec("10"))
		if !errors.Is(err, core.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	if types := pub.types(); len(types) == 0 || types[0] != core.EventRatesBulkAdjusted {
		t.Errorf("expected %s events, got %v", core.EventRatesBulkAdjusted, types)
	}
}

func TestRuleService_MarginRules(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewRuleService(pool)

	created, err := svc.CreateMarginRule(ctx, core.MarginRuleInput{
		Description: "PVC sheets",
		Kind:        core.MarginCategory,
		Category:    "PVC",
		Multiplier:  dec("1.85"),
	})
	if err != nil {
		t.Fatalf("CreateMarginRule: %v", err)
	}
	if created.Category == nil || *created.Category != "PVC" || created.ClientTier != nil {
		t.Errorf("unexpected filters: %+v", created)
	}

	t.Run("duplicate natural key conflicts", func(t *testing.T) {
		_, err := svc.CreateMarginRule(ctx, core.MarginRuleInput{
			Description: "PVC again",
			Kind:        core.MarginCategory,
			Category:    "PVC",
			Multiplier:  dec("2"),
		})
		if !errors.Is(err, core.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("non-positive multiplier is rejected", func(t *testing.T) {
		_, err := svc.CreateMarginRule(ctx, core.MarginRuleInput{
			Description: "Free",
			Kind:        core.MarginGeneral,
			Multiplier:  decimal.Zero,
		})
		if !errors.Is(err, core.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		updated, err := svc.UpdateMarginRule(ctx, created.ID, core.MarginRuleInput{
			Description: "PVC sheets",
			Kind:        core.MarginCategory,
			Category:    "PVC",
			Multiplier:  dec("1.9"),
			Surcharge:   dec("0.25"),
		})
		if err != nil {
			t.Fatalf("UpdateMarginRule: %v", err)
		}
		if !updated.Multiplier.Equal(dec("1.9")) {
			t.Errorf("multiplier = %s, want 1.9", updated.Multiplier)
		}
		if err := svc.DeleteMarginRule(ctx, created.ID); err != nil {
			t.Fatalf("DeleteMarginRule: %v", err)
		}
		if err := svc.DeleteMarginRule(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestRuleService_DiscountAndSpecialPrices(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewRuleService(pool)

	rule, err := svc.CreateDiscountRule(ctx, core.DiscountRuleInput{
		Description: "Volume",
		Basis:       core.DiscountByQuantity,
		IsActive:    true,
		Tiers: []core.DiscountTierInput{
			{Threshold: dec("500"), Kind: core.DiscountPercentage, Value: dec("15")},
			{Threshold: dec("100"), Kind: core.DiscountPercentage, Value: dec("10")},
		},
	})
	if err != nil {
		t.Fatalf("CreateDiscountRule: %v", err)
	}
	if len(rule.Tiers) != 2 || !rule.Tiers[0].Threshold.Equal(dec("100")) {
		t.Fatalf("expected tiers ascending by threshold, got %+v", rule.Tiers)
	}

	updated, err := svc.UpdateDiscountRule(ctx, rule.ID, core.DiscountRuleInput{
		Description: "Volume",
		Basis:       core.DiscountByQuantity,
		IsActive:    true,
		Tiers:       []core.DiscountTierInput{{Threshold: dec("50"), Kind: core.DiscountFixed, Value: dec("1")}},
	})
	if err != nil {
		t.Fatalf("UpdateDiscountRule: %v", err)
	}
	if len(updated.Tiers) != 1 {
		t.Errorf("expected tiers to be replaced, got %d", len(updated.Tiers))
	}

	sp, err := svc.CreateSpecialPrice(ctx, core.SpecialPriceInput{ClientID: 1, ProductID: 1, Price: dec("7.50")})
	if err != nil {
		t.Fatalf("CreateSpecialPrice: %v", err)
	}
	if sp.ClientCode != "C001" || sp.ProductCode != "PVC-5" {
		t.Errorf("unexpected special price: %+v", sp)
	}

	_, err = svc.CreateSpecialPrice(ctx, core.SpecialPriceInput{ClientID: 1, ProductID: 1, Price: dec("8")})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict for second active price, got %v", err)
	}

	_, err = svc.CreateSpecialPrice(ctx, core.SpecialPriceInput{ClientID: 99, ProductID: 1, Price: dec("8")})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown client, got %v", err)
	}
}

func TestSalesService_QuoteLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewRuleService(pool)
	if _, err := rules.CreateMarginRule(ctx, core.MarginRuleInput{
		Description: "PVC", Kind: core.MarginCategory, Category: "PVC", Multiplier: dec("1.85"),
	}); err != nil {
		t.Fatalf("CreateMarginRule: %v", err)
	}
	if _, err := rules.CreateSpecialPrice(ctx, core.SpecialPriceInput{ClientID: 2, ProductID: 1, Price: dec("9.99")}); err != nil {
		t.Fatalf("CreateSpecialPrice: %v", err)
	}

	// An existing quote for 2025 makes numbering continue from 007.
	_, err := pool.Exec(ctx, `
		INSERT INTO quotes (number, client_id, status, quote_date, tax_rate, subtotal, tax, total)
		VALUES ('2025-006', 1, 'REJECTED', '2025-03-01', 0.21, 0, 0, 0)`)
	if err != nil {
		t.Fatalf("seed quote: %v", err)
	}

	pub := &recordingPublisher{}
	svc := core.NewSalesService(pool, pub)

	q, err := svc.CreateQuote(ctx, core.DocumentInput{
		ClientID: 1,
		Date:     "2025-06-15",
		Lines: []core.LineInput{
			{ProductID: 1, Quantity: dec("10")},                        // 10 × 18.50
			{ProductID: 2, Quantity: dec("2"), UnitPrice: decPtr("5")}, // manual
			{ProductID: 3, Quantity: dec("1")},                         // rate cost 40, no margin
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if q.Number != "2025-007" {
		t.Errorf("number = %s, want 2025-007", q.Number)
	}
	if len(q.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(q.Lines))
	}
	wantSources := []core.PriceSource{core.PriceMargin, core.PriceManual, core.PriceCost}
	for i, l := range q.Lines {
		if l.PriceSource != wantSources[i] {
			t.Errorf("line %d source = %s, want %s", i+1, l.PriceSource, wantSources[i])
		}
	}
	// 185 + 10 + 40 = 235; tax 49.35
	if !q.Subtotal.Equal(dec("235")) || !q.Tax.Equal(dec("49.35")) || !q.Total.Equal(dec("284.35")) {
		t.Errorf("totals = %s / %s / %s", q.Subtotal, q.Tax, q.Total)
	}

	second, err := svc.CreateQuote(ctx, core.DocumentInput{
		ClientID: 2,
		Date:     "2025-06-16",
		Lines:    []core.LineInput{{ProductID: 1, Quantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if second.Number != "2025-008" {
		t.Errorf("number = %s, want 2025-008", second.Number)
	}
	if !second.Lines[0].UnitPrice.Equal(dec("9.99")) || second.Lines[0].PriceSource != core.PriceSpecial {
		t.Errorf("expected special price 9.99, got %s %s", second.Lines[0].UnitPrice, second.Lines[0].PriceSource)
	}

	t.Run("lookup by number", func(t *testing.T) {
		got, err := svc.GetQuoteByNumber(ctx, "2025-007")
		if err != nil {
			t.Fatalf("GetQuoteByNumber: %v", err)
		}
		if got.ID != q.ID {
			t.Errorf("expected quote %d, got %d", q.ID, got.ID)
		}
	})

	t.Run("tax rate is read at creation time", func(t *testing.T) {
		if _, err := pool.Exec(ctx, "UPDATE settings SET value = '0.10' WHERE key = 'tax_rate'"); err != nil {
			t.Fatalf("update tax rate: %v", err)
		}
		q3, err := svc.CreateQuote(ctx, core.DocumentInput{
			ClientID: 1,
			Date:     "2025-06-17",
			Lines:    []core.LineInput{{ProductID: 1, Quantity: dec("1")}},
		})
		if err != nil {
			t.Fatalf("CreateQuote: %v", err)
		}
		if !q3.Tax.Equal(dec("1.85")) {
			t.Errorf("tax = %s, want 1.85", q3.Tax)
		}
	})

	t.Run("convert to order", func(t *testing.T) {
		if _, err := svc.SetQuoteStatus(ctx, q.ID, core.QuoteAccepted); err != nil {
			t.Fatalf("SetQuoteStatus: %v", err)
		}
		order, err := svc.ConvertQuote(ctx, q.ID)
		if err != nil {
			t.Fatalf("ConvertQuote: %v", err)
		}
		if order.QuoteID == nil || *order.QuoteID != q.ID {
			t.Errorf("order not linked to quote: %+v", order.QuoteID)
		}
		if !order.Total.Equal(q.Total) || len(order.Lines) != len(q.Lines) {
			t.Errorf("order does not mirror quote: total %s lines %d", order.Total, len(order.Lines))
		}
		if order.Status != core.OrderPending {
			t.Errorf("status = %s, want PENDING", order.Status)
		}

		if _, err := svc.ConvertQuote(ctx, q.ID); !errors.Is(err, core.ErrConflict) {
			t.Errorf("expected ErrConflict converting twice, got %v", err)
		}
		if err := svc.DeleteQuote(ctx, q.ID); !errors.Is(err, core.ErrConflict) {
			t.Errorf("expected ErrConflict deleting a converted quote, got %v", err)
		}
	})

	t.Run("delete draft", func(t *testing.T) {
		if err := svc.DeleteQuote(ctx, second.ID); err != nil {
			t.Fatalf("DeleteQuote: %v", err)
		}
		if _, err := svc.GetQuote(ctx, second.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := svc.CreateQuote(ctx, core.DocumentInput{
			ClientID: 999,
			Lines:    []core.LineInput{{ProductID: 1, Quantity: dec("1")}},
		})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSalesService_OrderNumbersAreUniqueUnderConcurrency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewSalesService(pool, nil)

	const n = 8
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := svc.CreateOrder(ctx, core.DocumentInput{
				ClientID: 1,
				Date:     "2026-01-10",
				Lines:    []core.LineInput{{ProductID: 1, Quantity: dec("1"), UnitPrice: decPtr("1")}},
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- o.Number
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Errorf("CreateOrder: %v", err)
	}
	seen := map[string]bool{}
	for num := range numbers {
		if seen[num] {
			t.Errorf("duplicate order number %s", num)
		}
		seen[num] = true
	}
	if !seen["2026-001"] || !seen["2026-008"] {
		t.Errorf("expected a gapless 2026-001..008 range, got %v", seen)
	}
}

func TestSalesService_OrderStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewSalesService(pool, nil)

	o, err := svc.CreateOrder(ctx, core.DocumentInput{
		ClientID: 1,
		Lines:    []core.LineInput{{ProductID: 1, Quantity: dec("3")}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	steps := []string{core.OrderConfirmed, core.OrderInProduction, core.OrderDelivered}
	for _, st := range steps {
		if o, err = svc.SetOrderStatus(ctx, o.ID, st); err != nil {
			t.Fatalf("SetOrderStatus(%s): %v", st, err)
		}
	}
	if _, err := svc.SetOrderStatus(ctx, o.ID, core.OrderCancelled); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict cancelling a delivered order, got %v", err)
	}
	if _, err := svc.SetOrderStatus(ctx, o.ID, "SHIPPED"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestCatalog_DeleteBlockedByReference(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	rules := core.NewRuleService(pool)
	catalog := core.NewCatalogService(pool)

	if _, err := rules.CreateSpecialPrice(ctx, core.SpecialPriceInput{ClientID: 1, ProductID: 1, Price: dec("5")}); err != nil {
		t.Fatalf("CreateSpecialPrice: %v", err)
	}
	if err := catalog.DeleteProduct(ctx, 1); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict deleting a referenced product, got %v", err)
	}
	if err := catalog.DeleteClient(ctx, 1); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict deleting a referenced client, got %v", err)
	}

	_, err := catalog.CreateClient(ctx, core.ClientInput{Code: "C001", Name: "Dup"})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate client code, got %v", err)
	}
}

func TestSettings_TaxRate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	settings := core.NewSettingsService(pool)
	totals := core.NewTotalsService(settings)

	got, err := totals.Compute(ctx, []core.TotalsLine{{Quantity: dec("10"), UnitPrice: dec("1.30")}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !got.Total.Equal(dec("15.73")) {
		t.Errorf("total = %s, want 15.73", got.Total)
	}

	if _, err := settings.Set(ctx, core.SettingTaxRate, "1.5"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for tax rate > 1, got %v", err)
	}

	if _, err := pool.Exec(ctx, "DELETE FROM settings WHERE key = 'tax_rate'"); err != nil {
		t.Fatalf("delete tax rate: %v", err)
	}
	rate, err := settings.TaxRate(ctx)
	if err != nil {
		t.Fatalf("TaxRate: %v", err)
	}
	if !rate.Equal(dec("0.21")) {
		t.Errorf("missing tax rate should default to 0.21, got %s", rate)
	}
}

func TestSupplierService_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewSupplierService(pool)

	created, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "S001", Name: "Plasticos Levante"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	if created.PaymentTermsDays != 30 {
		t.Errorf("payment terms = %d, want default 30", created.PaymentTermsDays)
	}
	if created.Email != nil {
		t.Errorf("empty email must be stored as NULL, got %q", *created.Email)
	}

	if _, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "S001", Name: "Duplicate"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate code: expected ErrConflict, got %v", err)
	}
	if _, err := svc.CreateSupplier(ctx, core.SupplierInput{Code: "S002", Name: "Bad", Email: "nope"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("bad email: expected ErrValidation, got %v", err)
	}

	if err := svc.DeactivateSupplier(ctx, "S001"); err != nil {
		t.Fatalf("DeactivateSupplier: %v", err)
	}
	list, err := svc.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("ListSuppliers: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("deactivated supplier still listed: %+v", list)
	}
	got, err := svc.GetSupplierByCode(ctx, "S001")
	if err != nil {
		t.Fatalf("GetSupplierByCode after deactivate: %v", err)
	}
	if got.IsActive {
		t.Error("supplier should be inactive")
	}

	if err := svc.DeactivateSupplier(ctx, "NOPE"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown supplier: expected ErrNotFound, got %v", err)
	}
}
