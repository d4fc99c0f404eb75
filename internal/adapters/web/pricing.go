package web

import (
	"net/http"

	"workshop-manager/internal/app"
	"workshop-manager/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Rate table ────────────────────────────────────────────────────────────────

// apiListRates handles GET /api/rates?material=PVC.
func (h *Handler) apiListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.ListRates(r.Context(), r.URL.Query().Get("material"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rates)
}

// apiUpsertRate handles PUT /api/rates.
// Body: { material, thickness, unit_price, unit_weight? }
func (h *Handler) apiUpsertRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Material   string      `json:"material"`
		Thickness  core.Number `json:"thickness"`
		UnitPrice  core.Number `json:"unit_price"`
		UnitWeight core.Number `json:"unit_weight"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	nums := newNumbers()
	in := core.RateInput{
		Material:   body.Material,
		Thickness:  nums.required("thickness", body.Thickness),
		UnitPrice:  nums.required("unit_price", body.UnitPrice),
		UnitWeight: nums.orZero("unit_weight", body.UnitWeight),
	}
	if err := nums.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	rate, err := h.svc.UpsertRate(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rate)
}

// apiDeleteRate handles DELETE /api/rates/{id}.
func (h *Handler) apiDeleteRate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRate(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiBulkAdjust handles POST /api/rates/bulk-adjust.
// Body: { material: "PVC" | "ALL", percentage: 10 }
func (h *Handler) apiBulkAdjust(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Material   string      `json:"material"`
		Percentage core.Number `json:"percentage"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	nums := newNumbers()
	pct := nums.required("percentage", body.Percentage)
	if err := nums.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.BulkAdjust(r.Context(), app.BulkAdjustRequest{
		Material:   body.Material,
		Percentage: pct,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiExportRates handles GET /api/rates/export?material=PVC.
func (h *Handler) apiExportRates(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.ExportRates(r.Context(), r.URL.Query().Get("material"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeFile(w, file.Filename, file.ContentType, file.Data)
}

// ── Settings ──────────────────────────────────────────────────────────────────

// apiListSettings handles GET /api/settings.
func (h *Handler) apiListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.ListSettings(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// apiGetSetting handles GET /api/settings/{key}.
func (h *Handler) apiGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.svc.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, setting)
}

// apiSetSetting handles PUT /api/settings/{key}. Body: { value }
func (h *Handler) apiSetSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	setting, err := h.svc.SetSetting(r.Context(), chi.URLParam(r, "key"), body.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, setting)
}

// ── Pricing ───────────────────────────────────────────────────────────────────

// apiPriceLine handles POST /api/pricing/price.
// Body: { product_id, client_id, quantity }
func (h *Handler) apiPriceLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID int         `json:"product_id"`
		ClientID  int         `json:"client_id"`
		Quantity  core.Number `json:"quantity"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	nums := newNumbers()
	qty := nums.required("quantity", body.Quantity)
	if err := nums.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	breakdown, err := h.svc.PriceLine(r.Context(), app.PriceLineRequest{
		ProductID: body.ProductID,
		ClientID:  body.ClientID,
		Quantity:  qty,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, breakdown)
}

// apiComputeTotals handles POST /api/pricing/totals.
// Body: { lines: [{quantity, unit_price}] }. Non-numeric amounts count as zero.
func (h *Handler) apiComputeTotals(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lines []struct {
			Quantity  core.Number `json:"quantity"`
			UnitPrice core.Number `json:"unit_price"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	req := app.TotalsRequest{Lines: make([]core.TotalsLine, len(body.Lines))}
	for i, l := range body.Lines {
		req.Lines[i] = core.TotalsLine{
			Quantity:  l.Quantity.OrZero(),
			UnitPrice: l.UnitPrice.OrZero(),
		}
	}
	totals, err := h.svc.ComputeTotals(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, totals)
}
