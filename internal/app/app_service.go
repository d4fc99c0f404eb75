package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"workshop-manager/internal/core"
	"workshop-manager/internal/export"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Services bundles the domain services the application layer delegates to.
type Services struct {
	Catalog   core.CatalogService
	Suppliers core.SupplierService
	Rules     core.RuleService
	Rates     core.RateService
	Settings  core.SettingsService
	Totals    core.TotalsService
	Sales     core.SalesService
	Pricing   *core.PricingEngine
}

// NewServices wires every domain service against pool. publisher may be nil.
func NewServices(pool *pgxpool.Pool, publisher core.EventPublisher) Services {
	settings := core.NewSettingsService(pool)
	return Services{
		Catalog:   core.NewCatalogService(pool),
		Suppliers: core.NewSupplierService(pool),
		Rules:     core.NewRuleService(pool),
		Rates:     core.NewRateService(pool, publisher),
		Settings:  settings,
		Totals:    core.NewTotalsService(settings),
		Sales:     core.NewSalesService(pool, publisher),
		Pricing:   core.NewPricingEngine(core.NewPricingStore(pool)),
	}
}

type appService struct {
	svc         Services
	companyName string
	now         func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// companyName heads generated quote PDFs.
func NewAppService(svc Services, companyName string) ApplicationService {
	return &appService{
		svc:         svc,
		companyName: companyName,
		now:         time.Now,
	}
}

// ── Master data ───────────────────────────────────────────────────────────────

func (s *appService) ListClients(ctx context.Context) ([]core.Client, error) {
	return s.svc.Catalog.ListClients(ctx)
}

func (s *appService) GetClient(ctx context.Context, id int) (*core.Client, error) {
	return s.svc.Catalog.GetClient(ctx, id)
}

func (s *appService) CreateClient(ctx context.Context, input core.ClientInput) (*core.Client, error) {
	return s.svc.Catalog.CreateClient(ctx, input)
}

func (s *appService) UpdateClient(ctx context.Context, id int, input core.ClientInput) (*core.Client, error) {
	return s.svc.Catalog.UpdateClient(ctx, id, input)
}

func (s *appService) DeleteClient(ctx context.Context, id int) error {
	return s.svc.Catalog.DeleteClient(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context, activeOnly bool) ([]core.Product, error) {
	return s.svc.Catalog.ListProducts(ctx, activeOnly)
}

func (s *appService) GetProduct(ctx context.Context, id int) (*core.Product, error) {
	return s.svc.Catalog.GetProduct(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, input core.ProductInput) (*core.Product, error) {
	return s.svc.Catalog.CreateProduct(ctx, input)
}

func (s *appService) UpdateProduct(ctx context.Context, id int, input core.ProductInput) (*core.Product, error) {
	return s.svc.Catalog.UpdateProduct(ctx, id, input)
}

func (s *appService) DeleteProduct(ctx context.Context, id int) error {
	return s.svc.Catalog.DeleteProduct(ctx, id)
}

func (s *appService) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	return s.svc.Suppliers.ListSuppliers(ctx)
}

func (s *appService) GetSupplier(ctx context.Context, code string) (*core.Supplier, error) {
	return s.svc.Suppliers.GetSupplierByCode(ctx, code)
}

func (s *appService) CreateSupplier(ctx context.Context, input core.SupplierInput) (*core.Supplier, error) {
	return s.svc.Suppliers.CreateSupplier(ctx, input)
}

// DeleteSupplier deactivates the supplier; its history stays intact.
func (s *appService) DeleteSupplier(ctx context.Context, code string) error {
	return s.svc.Suppliers.DeactivateSupplier(ctx, code)
}

// ── Pricing rules ─────────────────────────────────────────────────────────────

func (s *appService) ListMarginRules(ctx context.Context) ([]core.MarginRule, error) {
	return s.svc.Rules.ListMarginRules(ctx)
}

func (s *appService) GetMarginRule(ctx context.Context, id int) (*core.MarginRule, error) {
	return s.svc.Rules.GetMarginRule(ctx, id)
}

func (s *appService) CreateMarginRule(ctx context.Context, input core.MarginRuleInput) (*core.MarginRule, error) {
	return s.svc.Rules.CreateMarginRule(ctx, input)
}

func (s *appService) UpdateMarginRule(ctx context.Context, id int, input core.MarginRuleInput) (*core.MarginRule, error) {
	return s.svc.Rules.UpdateMarginRule(ctx, id, input)
}

func (s *appService) DeleteMarginRule(ctx context.Context, id int) error {
	return s.svc.Rules.DeleteMarginRule(ctx, id)
}

func (s *appService) ListDiscountRules(ctx context.Context) ([]core.DiscountRule, error) {
	return s.svc.Rules.ListDiscountRules(ctx)
}

func (s *appService) GetDiscountRule(ctx context.Context, id int) (*core.DiscountRule, error) {
	return s.svc.Rules.GetDiscountRule(ctx, id)
}

func (s *appService) CreateDiscountRule(ctx context.Context, input core.DiscountRuleInput) (*core.DiscountRule, error) {
	return s.svc.Rules.CreateDiscountRule(ctx, input)
}

func (s *appService) UpdateDiscountRule(ctx context.Context, id int, input core.DiscountRuleInput) (*core.DiscountRule, error) {
	return s.svc.Rules.UpdateDiscountRule(ctx, id, input)
}

func (s *appService) DeleteDiscountRule(ctx context.Context, id int) error {
	return s.svc.Rules.DeleteDiscountRule(ctx, id)
}

func (s *appService) ListSpecialPrices(ctx context.Context, clientID *int) ([]core.SpecialPrice, error) {
	return s.svc.Rules.ListSpecialPrices(ctx, clientID)
}

func (s *appService) CreateSpecialPrice(ctx context.Context, input core.SpecialPriceInput) (*core.SpecialPrice, error) {
	return s.svc.Rules.CreateSpecialPrice(ctx, input)
}

func (s *appService) DeleteSpecialPrice(ctx context.Context, id int) error {
	return s.svc.Rules.DeleteSpecialPrice(ctx, id)
}

// ── Rate table ────────────────────────────────────────────────────────────────

func (s *appService) ListRates(ctx context.Context, material string) ([]core.RateEntry, error) {
	return s.svc.Rates.ListRates(ctx, material)
}

func (s *appService) UpsertRate(ctx context.Context, input core.RateInput) (*core.RateEntry, error) {
	return s.svc.Rates.UpsertRate(ctx, input)
}

func (s *appService) DeleteRate(ctx context.Context, id int) error {
	return s.svc.Rates.DeleteRate(ctx, id)
}

// BulkAdjust scales every rate of a material (or ALL) by 1 + percentage/100.
func (s *appService) BulkAdjust(ctx context.Context, req BulkAdjustRequest) (*core.BulkAdjustResult, error) {
	return s.svc.Rates.BulkAdjust(ctx, req.Material, req.Percentage)
}

// ExportRates renders the rate table as an XLSX workbook.
func (s *appService) ExportRates(ctx context.Context, material string) (*FileResult, error) {
	rates, err := s.svc.Rates.ListRates(ctx, material)
	if err != nil {
		return nil, err
	}
	data, err := export.RatesExcel(rates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInternal, err)
	}

	name := "rates"
	if m := strings.TrimSpace(material); m != "" {
		name += "-" + strings.ToLower(m)
	}
	return &FileResult{
		Filename:    fmt.Sprintf("%s-%s.xlsx", name, s.now().Format("20060102")),
		ContentType: ContentTypeXLSX,
		Data:        data,
	}, nil
}

// ── Settings ──────────────────────────────────────────────────────────────────

func (s *appService) ListSettings(ctx context.Context) ([]core.Setting, error) {
	return s.svc.Settings.List(ctx)
}

func (s *appService) GetSetting(ctx context.Context, key string) (*core.Setting, error) {
	return s.svc.Settings.Get(ctx, key)
}

func (s *appService) SetSetting(ctx context.Context, key, value string) (*core.Setting, error) {
	return s.svc.Settings.Set(ctx, key, value)
}

// ── Pricing ───────────────────────────────────────────────────────────────────

// PriceLine previews the unit price the engine would put on a line.
func (s *appService) PriceLine(ctx context.Context, req PriceLineRequest) (*core.PriceBreakdown, error) {
	return s.svc.Pricing.PriceLine(ctx, core.PriceRequest{
		ProductID: req.ProductID,
		ClientID:  req.ClientID,
		Quantity:  req.Quantity,
	})
}

// ComputeTotals applies the current tax rate to ad-hoc lines.
func (s *appService) ComputeTotals(ctx context.Context, req TotalsRequest) (*core.Totals, error) {
	totals, err := s.svc.Totals.Compute(ctx, req.Lines)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// ── Quotes ────────────────────────────────────────────────────────────────────

func (s *appService) CreateQuote(ctx context.Context, req CreateDocumentRequest) (*QuoteResult, error) {
	quote, err := s.svc.Sales.CreateQuote(ctx, req.input())
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: quote}, nil
}

func (s *appService) GetQuote(ctx context.Context, ref string) (*QuoteResult, error) {
	quote, err := s.resolveQuote(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: quote}, nil
}

func (s *appService) ListQuotes(ctx context.Context, status *string) (*QuoteListResult, error) {
	quotes, err := s.svc.Sales.ListQuotes(ctx, status)
	if err != nil {
		return nil, err
	}
	return &QuoteListResult{Quotes: quotes}, nil
}

func (s *appService) SetQuoteStatus(ctx context.Context, ref, status string) (*QuoteResult, error) {
	quote, err := s.resolveQuote(ctx, ref)
	if err != nil {
		return nil, err
	}
	quote, err = s.svc.Sales.SetQuoteStatus(ctx, quote.ID, strings.ToUpper(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: quote}, nil
}

func (s *appService) DeleteQuote(ctx context.Context, ref string) error {
	quote, err := s.resolveQuote(ctx, ref)
	if err != nil {
		return err
	}
	return s.svc.Sales.DeleteQuote(ctx, quote.ID)
}

func (s *appService) ConvertQuote(ctx context.Context, ref string) (*OrderResult, error) {
	quote, err := s.resolveQuote(ctx, ref)
	if err != nil {
		return nil, err
	}
	order, err := s.svc.Sales.ConvertQuote(ctx, quote.ID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) QuotePDF(ctx context.Context, ref string) (*FileResult, error) {
	quote, err := s.resolveQuote(ctx, ref)
	if err != nil {
		return nil, err
	}
	data, err := export.QuotePDF(quote, s.companyName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInternal, err)
	}
	return &FileResult{
		Filename:    fmt.Sprintf("quote-%s.pdf", quote.Number),
		ContentType: ContentTypePDF,
		Data:        data,
	}, nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, req CreateDocumentRequest) (*OrderResult, error) {
	order, err := s.svc.Sales.CreateOrder(ctx, req.input())
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) GetOrder(ctx context.Context, ref string) (*OrderResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, status *string) (*OrderListResult, error) {
	orders, err := s.svc.Sales.ListOrders(ctx, status)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) SetOrderStatus(ctx context.Context, ref, status string) (*OrderResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	order, err = s.svc.Sales.SetOrderStatus(ctx, order.ID, strings.ToUpper(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

// ── private helpers ───────────────────────────────────────────────────────────

// resolveQuote looks up a quote by numeric ID or quote number string.
func (s *appService) resolveQuote(ctx context.Context, ref string) (*core.Quote, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return s.svc.Sales.GetQuote(ctx, id)
	}
	return s.svc.Sales.GetQuoteByNumber(ctx, ref)
}

// resolveOrder looks up an order by numeric ID or order number string.
func (s *appService) resolveOrder(ctx context.Context, ref string) (*core.Order, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return s.svc.Sales.GetOrder(ctx, id)
	}
	return s.svc.Sales.GetOrderByNumber(ctx, ref)
}
