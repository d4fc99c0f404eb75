package app

import (
	"context"

	"workshop-manager/internal/core"
)

// ApplicationService is the single interface all adapters (web, CLI) call.
// It decouples presentation from business logic. Implementations must contain
// no printing and no display logic of any kind.
//
// Quote and order refs are either a numeric id or a document number such as
// "2025-007".
type ApplicationService interface {
	// ── Master data ──

	ListClients(ctx context.Context) ([]core.Client, error)
	GetClient(ctx context.Context, id int) (*core.Client, error)
	CreateClient(ctx context.Context, input core.ClientInput) (*core.Client, error)
	UpdateClient(ctx context.Context, id int, input core.ClientInput) (*core.Client, error)
	DeleteClient(ctx context.Context, id int) error

	ListProducts(ctx context.Context, activeOnly bool) ([]core.Product, error)
	GetProduct(ctx context.Context, id int) (*core.Product, error)
	CreateProduct(ctx context.Context, input core.ProductInput) (*core.Product, error)
	UpdateProduct(ctx context.Context, id int, input core.ProductInput) (*core.Product, error)
	DeleteProduct(ctx context.Context, id int) error

	ListSuppliers(ctx context.Context) ([]core.Supplier, error)
	GetSupplier(ctx context.Context, code string) (*core.Supplier, error)
	CreateSupplier(ctx context.Context, input core.SupplierInput) (*core.Supplier, error)
	DeleteSupplier(ctx context.Context, code string) error

	// ── Pricing rules ──

	ListMarginRules(ctx context.Context) ([]core.MarginRule, error)
	GetMarginRule(ctx context.Context, id int) (*core.MarginRule, error)
	CreateMarginRule(ctx context.Context, input core.MarginRuleInput) (*core.MarginRule, error)
	UpdateMarginRule(ctx context.Context, id int, input core.MarginRuleInput) (*core.MarginRule, error)
	DeleteMarginRule(ctx context.Context, id int) error

	ListDiscountRules(ctx context.Context) ([]core.DiscountRule, error)
	GetDiscountRule(ctx context.Context, id int) (*core.DiscountRule, error)
	CreateDiscountRule(ctx context.Context, input core.DiscountRuleInput) (*core.DiscountRule, error)
	UpdateDiscountRule(ctx context.Context, id int, input core.DiscountRuleInput) (*core.DiscountRule, error)
	DeleteDiscountRule(ctx context.Context, id int) error

	ListSpecialPrices(ctx context.Context, clientID *int) ([]core.SpecialPrice, error)
	CreateSpecialPrice(ctx context.Context, input core.SpecialPriceInput) (*core.SpecialPrice, error)
	DeleteSpecialPrice(ctx context.Context, id int) error

	// ── Rate table ──

	ListRates(ctx context.Context, material string) ([]core.RateEntry, error)
	UpsertRate(ctx context.Context, input core.RateInput) (*core.RateEntry, error)
	DeleteRate(ctx context.Context, id int) error

	// BulkAdjust scales every rate of a material (or ALL) by 1 + percentage/100.
	BulkAdjust(ctx context.Context, req BulkAdjustRequest) (*core.BulkAdjustResult, error)

	// ExportRates renders the rate table, optionally filtered by material, as XLSX.
	ExportRates(ctx context.Context, material string) (*FileResult, error)

	// ── Settings ──

	ListSettings(ctx context.Context) ([]core.Setting, error)
	GetSetting(ctx context.Context, key string) (*core.Setting, error)
	SetSetting(ctx context.Context, key, value string) (*core.Setting, error)

	// ── Pricing ──

	// PriceLine previews the unit price the engine would put on a line.
	PriceLine(ctx context.Context, req PriceLineRequest) (*core.PriceBreakdown, error)

	// ComputeTotals applies the current tax rate to ad-hoc lines.
	ComputeTotals(ctx context.Context, req TotalsRequest) (*core.Totals, error)

	// ── Quotes ──

	CreateQuote(ctx context.Context, req CreateDocumentRequest) (*QuoteResult, error)
	GetQuote(ctx context.Context, ref string) (*QuoteResult, error)
	ListQuotes(ctx context.Context, status *string) (*QuoteListResult, error)
	SetQuoteStatus(ctx context.Context, ref, status string) (*QuoteResult, error)
	DeleteQuote(ctx context.Context, ref string) error

	// ConvertQuote turns a DRAFT, SENT or ACCEPTED quote into a PENDING order.
	ConvertQuote(ctx context.Context, ref string) (*OrderResult, error)

	// QuotePDF renders a quote for sending to the client.
	QuotePDF(ctx context.Context, ref string) (*FileResult, error)

	// ── Orders ──

	CreateOrder(ctx context.Context, req CreateDocumentRequest) (*OrderResult, error)
	GetOrder(ctx context.Context, ref string) (*OrderResult, error)
	ListOrders(ctx context.Context, status *string) (*OrderListResult, error)
	SetOrderStatus(ctx context.Context, ref, status string) (*OrderResult, error)
}
