package web

import (
	"fmt"
	"net/http"
	"strconv"

	"workshop-manager/internal/core"
)

// ── Margin rules ──────────────────────────────────────────────────────────────

type marginRuleBody struct {
	Description string      `json:"description"`
	Kind        string      `json:"kind"`
	Category    string      `json:"category"`
	ClientTier  string      `json:"client_tier"`
	Multiplier  core.Number `json:"multiplier"`
	Surcharge   core.Number `json:"surcharge"`
}

func (b marginRuleBody) input() (core.MarginRuleInput, error) {
	nums := newNumbers()
	in := core.MarginRuleInput{
		Description: b.Description,
		Kind:        core.MarginKind(b.Kind),
		Category:    b.Category,
		ClientTier:  b.ClientTier,
		Multiplier:  nums.required("multiplier", b.Multiplier),
		Surcharge:   nums.orZero("surcharge", b.Surcharge),
	}
	return in, nums.err()
}

// apiListMarginRules handles GET /api/margin-rules.
func (h *Handler) apiListMarginRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.ListMarginRules(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rules)
}

// apiGetMarginRule handles GET /api/margin-rules/{id}.
func (h *Handler) apiGetMarginRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	rule, err := h.svc.GetMarginRule(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rule)
}

// apiCreateMarginRule handles POST /api/margin-rules.
// Body: { description, kind, category?, client_tier?, multiplier, surcharge? }
func (h *Handler) apiCreateMarginRule(w http.ResponseWriter, r *http.Request) {
	var body marginRuleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rule, err := h.svc.CreateMarginRule(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rule)
}

// apiUpdateMarginRule handles PUT /api/margin-rules/{id}.
func (h *Handler) apiUpdateMarginRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body marginRuleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rule, err := h.svc.UpdateMarginRule(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rule)
}

// apiDeleteMarginRule handles DELETE /api/margin-rules/{id}.
func (h *Handler) apiDeleteMarginRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMarginRule(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Discount rules ────────────────────────────────────────────────────────────

type discountRuleBody struct {
	Description string `json:"description"`
	Basis       string `json:"basis"`
	IsActive    *bool  `json:"is_active"`
	Tiers       []struct {
		Threshold core.Number `json:"threshold"`
		Kind      string      `json:"kind"`
		Value     core.Number `json:"value"`
	} `json:"tiers"`
}

func (b discountRuleBody) input() (core.DiscountRuleInput, error) {
	nums := newNumbers()
	in := core.DiscountRuleInput{
		Description: b.Description,
		Basis:       core.DiscountBasis(b.Basis),
		IsActive:    b.IsActive == nil || *b.IsActive,
		Tiers:       make([]core.DiscountTierInput, len(b.Tiers)),
	}
	for i, t := range b.Tiers {
		prefix := "tiers[" + strconv.Itoa(i) + "]"
		in.Tiers[i] = core.DiscountTierInput{
			Threshold: nums.required(prefix+".threshold", t.Threshold),
			Kind:      core.DiscountKind(t.Kind),
			Value:     nums.required(prefix+".value", t.Value),
		}
	}
	return in, nums.err()
}

// apiListDiscountRules handles GET /api/discount-rules.
func (h *Handler) apiListDiscountRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.ListDiscountRules(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rules)
}

// apiGetDiscountRule handles GET /api/discount-rules/{id}.
func (h *Handler) apiGetDiscountRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	rule, err := h.svc.GetDiscountRule(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rule)
}

// apiCreateDiscountRule handles POST /api/discount-rules.
// Body: { description, basis, is_active?, tiers: [{threshold, kind, value}] }
func (h *Handler) apiCreateDiscountRule(w http.ResponseWriter, r *http.Request) {
	var body discountRuleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rule, err := h.svc.CreateDiscountRule(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rule)
}

// apiUpdateDiscountRule handles PUT /api/discount-rules/{id}. Tiers are
// replaced as a whole.
func (h *Handler) apiUpdateDiscountRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body discountRuleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rule, err := h.svc.UpdateDiscountRule(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rule)
}

// apiDeleteDiscountRule handles DELETE /api/discount-rules/{id}.
func (h *Handler) apiDeleteDiscountRule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteDiscountRule(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Special prices ────────────────────────────────────────────────────────────

// apiListSpecialPrices handles GET /api/special-prices?client_id=N.
func (h *Handler) apiListSpecialPrices(w http.ResponseWriter, r *http.Request) {
	var clientID *int
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			writeError(w, r, fmt.Sprintf("invalid client_id %q", raw), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		clientID = &id
	}
	prices, err := h.svc.ListSpecialPrices(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, prices)
}

// apiCreateSpecialPrice handles POST /api/special-prices.
// Body: { client_id, product_id, price }
func (h *Handler) apiCreateSpecialPrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClientID  int         `json:"client_id"`
		ProductID int         `json:"product_id"`
		Price     core.Number `json:"price"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	nums := newNumbers()
	in := core.SpecialPriceInput{
		ClientID:  body.ClientID,
		ProductID: body.ProductID,
		Price:     nums.required("price", body.Price),
	}
	if err := nums.err(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sp, err := h.svc.CreateSpecialPrice(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sp)
}

// apiDeleteSpecialPrice handles DELETE /api/special-prices/{id}.
func (h *Handler) apiDeleteSpecialPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteSpecialPrice(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
