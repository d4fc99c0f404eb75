package web

import (
	"net/http"
	"strconv"

	"workshop-manager/internal/app"
	"workshop-manager/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Quotes and orders ─────────────────────────────────────────────────────────

type documentBody struct {
	ClientID int    `json:"client_id"`
	Date     string `json:"date"`
	Notes    string `json:"notes"`
	Lines    []struct {
		ProductID int         `json:"product_id"`
		Quantity  core.Number `json:"quantity"`
		UnitPrice core.Number `json:"unit_price"`
	} `json:"lines"`
}

func (b documentBody) request() (app.CreateDocumentRequest, error) {
	nums := newNumbers()
	req := app.CreateDocumentRequest{
		ClientID: b.ClientID,
		Date:     b.Date,
		Notes:    b.Notes,
		Lines:    make([]app.LineRequest, len(b.Lines)),
	}
	for i, l := range b.Lines {
		prefix := "lines[" + strconv.Itoa(i) + "]"
		req.Lines[i] = app.LineRequest{
			ProductID: l.ProductID,
			Quantity:  nums.required(prefix+".quantity", l.Quantity),
			UnitPrice: nums.optional(prefix+".unit_price", l.UnitPrice),
		}
	}
	return req, nums.err()
}

type statusBody struct {
	Status string `json:"status"`
}

// apiListQuotes handles GET /api/quotes?status=DRAFT.
func (h *Handler) apiListQuotes(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListQuotes(r.Context(), statusFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Quotes)
}

// apiCreateQuote handles POST /api/quotes.
// Body: { client_id, date?, notes?, lines: [{product_id, quantity, unit_price?}] }
func (h *Handler) apiCreateQuote(w http.ResponseWriter, r *http.Request) {
	var body documentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := body.request()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.CreateQuote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Quote)
}

// apiGetQuote handles GET /api/quotes/{ref}.
func (h *Handler) apiGetQuote(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetQuote(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Quote)
}

// apiDeleteQuote handles DELETE /api/quotes/{ref}. Only drafts can be deleted.
func (h *Handler) apiDeleteQuote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteQuote(r.Context(), chi.URLParam(r, "ref")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiSetQuoteStatus handles POST /api/quotes/{ref}/status. Body: { status }
func (h *Handler) apiSetQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.SetQuoteStatus(r.Context(), chi.URLParam(r, "ref"), body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Quote)
}

// apiConvertQuote handles POST /api/quotes/{ref}/convert.
func (h *Handler) apiConvertQuote(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ConvertQuote(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Order)
}

// apiQuotePDF handles GET /api/quotes/{ref}/pdf.
func (h *Handler) apiQuotePDF(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.QuotePDF(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeFile(w, file.Filename, file.ContentType, file.Data)
}

// apiListOrders handles GET /api/orders?status=PENDING.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOrders(r.Context(), statusFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiCreateOrder handles POST /api/orders. Same body as quotes.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body documentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := body.request()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Order)
}

// apiGetOrder handles GET /api/orders/{ref}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiSetOrderStatus handles POST /api/orders/{ref}/status. Body: { status }
func (h *Handler) apiSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.SetOrderStatus(r.Context(), chi.URLParam(r, "ref"), body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}
