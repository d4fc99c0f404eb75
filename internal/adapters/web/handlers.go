package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"workshop-manager/internal/app"
	"workshop-manager/internal/core"
	"workshop-manager/internal/idempotency"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes. guard may be
// nil, which disables Idempotency-Key checks.
func NewHandler(svc app.ApplicationService, guard idempotency.Guard, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Master data ───────────────────────────────────────────────────────
		r.Route("/api/clients", func(r chi.Router) {
			r.Get("/", h.apiListClients)
			r.Post("/", h.apiCreateClient)
			r.Get("/{id}", h.apiGetClient)
			r.Put("/{id}", h.apiUpdateClient)
			r.Delete("/{id}", h.apiDeleteClient)
		})
		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", h.apiListProducts)
			r.Post("/", h.apiCreateProduct)
			r.Get("/{id}", h.apiGetProduct)
			r.Put("/{id}", h.apiUpdateProduct)
			r.Delete("/{id}", h.apiDeleteProduct)
		})
		r.Route("/api/suppliers", func(r chi.Router) {
			r.Get("/", h.apiListSuppliers)
			r.Post("/", h.apiCreateSupplier)
			r.Get("/{code}", h.apiGetSupplier)
			r.Delete("/{code}", h.apiDeleteSupplier)
		})

		// ── Pricing rules ─────────────────────────────────────────────────────
		r.Route("/api/margin-rules", func(r chi.Router) {
			r.Get("/", h.apiListMarginRules)
			r.Post("/", h.apiCreateMarginRule)
			r.Get("/{id}", h.apiGetMarginRule)
			r.Put("/{id}", h.apiUpdateMarginRule)
			r.Delete("/{id}", h.apiDeleteMarginRule)
		})
		r.Route("/api/discount-rules", func(r chi.Router) {
			r.Get("/", h.apiListDiscountRules)
			r.Post("/", h.apiCreateDiscountRule)
			r.Get("/{id}", h.apiGetDiscountRule)
			r.Put("/{id}", h.apiUpdateDiscountRule)
			r.Delete("/{id}", h.apiDeleteDiscountRule)
		})
		r.Route("/api/special-prices", func(r chi.Router) {
			r.Get("/", h.apiListSpecialPrices)
			r.Post("/", h.apiCreateSpecialPrice)
			r.Delete("/{id}", h.apiDeleteSpecialPrice)
		})

		// ── Rate table and settings ───────────────────────────────────────────
		r.Route("/api/rates", func(r chi.Router) {
			r.Get("/", h.apiListRates)
			r.Put("/", h.apiUpsertRate)
			r.Post("/bulk-adjust", h.apiBulkAdjust)
			r.Get("/export", h.apiExportRates)
			r.Delete("/{id}", h.apiDeleteRate)
		})
		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/", h.apiListSettings)
			r.Get("/{key}", h.apiGetSetting)
			r.Put("/{key}", h.apiSetSetting)
		})

		// ── Pricing ───────────────────────────────────────────────────────────
		r.Post("/api/pricing/price", h.apiPriceLine)
		r.Post("/api/pricing/totals", h.apiComputeTotals)

		// ── Quotes and orders ─────────────────────────────────────────────────
		r.Route("/api/quotes", func(r chi.Router) {
			r.Get("/", h.apiListQuotes)
			r.With(Idempotency(guard)).Post("/", h.apiCreateQuote)
			r.Get("/{ref}", h.apiGetQuote)
			r.Delete("/{ref}", h.apiDeleteQuote)
			r.Post("/{ref}/status", h.apiSetQuoteStatus)
			r.Post("/{ref}/convert", h.apiConvertQuote)
			r.Get("/{ref}/pdf", h.apiQuotePDF)
		})
		r.Route("/api/orders", func(r chi.Router) {
			r.Get("/", h.apiListOrders)
			r.With(Idempotency(guard)).Post("/", h.apiCreateOrder)
			r.Get("/{ref}", h.apiGetOrder)
			r.Post("/{ref}/status", h.apiSetOrderStatus)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// idParam parses a positive integer URL parameter, writing 400 when it is not one.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, fmt.Sprintf("invalid %s", name), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFilter returns the ?status= query value, or nil when absent.
func statusFilter(r *http.Request) *string {
	s := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	if s == "" {
		return nil
	}
	return &s
}

// numbers collects numeric body fields and reports every bad one at once.
type numbers struct {
	fields core.FieldErrors
}

func newNumbers() *numbers {
	return &numbers{fields: core.FieldErrors{}}
}

// required parses a mandatory number.
func (p *numbers) required(name string, n core.Number) decimal.Decimal {
	d, ok := n.Decimal()
	if !ok {
		p.fields[name] = "must be a number"
	}
	return d
}

// optional parses a number that may be omitted; nil means absent.
func (p *numbers) optional(name string, n core.Number) *decimal.Decimal {
	if !n.IsSet() {
		return nil
	}
	d, ok := n.Decimal()
	if !ok {
		p.fields[name] = "must be a number"
		return nil
	}
	return &d
}

// orZero parses a number that defaults to zero when omitted.
func (p *numbers) orZero(name string, n core.Number) decimal.Decimal {
	if d := p.optional(name, n); d != nil {
		return *d
	}
	return decimal.Zero
}

func (p *numbers) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &core.ValidationError{Message: "invalid numeric fields", Fields: p.fields}
}
