package web

import (
	"net/http"

	"workshop-manager/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Clients ───────────────────────────────────────────────────────────────────

type clientBody struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Tier  string `json:"tier"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	TaxID string `json:"tax_id"`
}

func (b clientBody) input() core.ClientInput {
	return core.ClientInput{
		Code:  b.Code,
		Name:  b.Name,
		Tier:  b.Tier,
		Email: b.Email,
		Phone: b.Phone,
		TaxID: b.TaxID,
	}
}

// apiListClients handles GET /api/clients.
func (h *Handler) apiListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, clients)
}

// apiGetClient handles GET /api/clients/{id}.
func (h *Handler) apiGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	client, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, client)
}

// apiCreateClient handles POST /api/clients.
func (h *Handler) apiCreateClient(w http.ResponseWriter, r *http.Request) {
	var body clientBody
	if !decodeJSON(w, r, &body) {
		return
	}
	client, err := h.svc.CreateClient(r.Context(), body.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, client)
}

// apiUpdateClient handles PUT /api/clients/{id}.
func (h *Handler) apiUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body clientBody
	if !decodeJSON(w, r, &body) {
		return
	}
	client, err := h.svc.UpdateClient(r.Context(), id, body.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, client)
}

// apiDeleteClient handles DELETE /api/clients/{id}. Clients referenced by
// quotes, orders or special prices answer 409.
func (h *Handler) apiDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteClient(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Products ──────────────────────────────────────────────────────────────────

type productBody struct {
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Material  string      `json:"material"`
	Category  string      `json:"category"`
	Thickness core.Number `json:"thickness"`
	UnitCost  core.Number `json:"unit_cost"`
	Unit      string      `json:"unit"`
	IsActive  *bool       `json:"is_active"`
}

func (b productBody) input() (core.ProductInput, error) {
	nums := newNumbers()
	in := core.ProductInput{
		Code:      b.Code,
		Name:      b.Name,
		Material:  b.Material,
		Category:  b.Category,
		Thickness: nums.optional("thickness", b.Thickness),
		UnitCost:  nums.orZero("unit_cost", b.UnitCost),
		Unit:      b.Unit,
		IsActive:  b.IsActive == nil || *b.IsActive,
	}
	return in, nums.err()
}

// apiListProducts handles GET /api/products?active=true.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	products, err := h.svc.ListProducts(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, products)
}

// apiGetProduct handles GET /api/products/{id}.
func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// apiCreateProduct handles POST /api/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, product)
}

// apiUpdateProduct handles PUT /api/products/{id}.
func (h *Handler) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body productBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// apiDeleteProduct handles DELETE /api/products/{id}.
func (h *Handler) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Suppliers ─────────────────────────────────────────────────────────────────

// apiListSuppliers handles GET /api/suppliers.
func (h *Handler) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, suppliers)
}

// apiGetSupplier handles GET /api/suppliers/{code}.
func (h *Handler) apiGetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.svc.GetSupplier(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, supplier)
}

// apiCreateSupplier handles POST /api/suppliers.
// Body: { code, name, contact_person?, email?, phone?, address?, payment_terms_days? }
func (h *Handler) apiCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code             string `json:"code"`
		Name             string `json:"name"`
		ContactPerson    string `json:"contact_person"`
		Email            string `json:"email"`
		Phone            string `json:"phone"`
		Address          string `json:"address"`
		PaymentTermsDays int    `json:"payment_terms_days"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	supplier, err := h.svc.CreateSupplier(r.Context(), core.SupplierInput{
		Code:             body.Code,
		Name:             body.Name,
		ContactPerson:    body.ContactPerson,
		Email:            body.Email,
		Phone:            body.Phone,
		Address:          body.Address,
		PaymentTermsDays: body.PaymentTermsDays,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, supplier)
}

// apiDeleteSupplier handles DELETE /api/suppliers/{code}. The supplier is
// deactivated, not removed.
func (h *Handler) apiDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSupplier(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
