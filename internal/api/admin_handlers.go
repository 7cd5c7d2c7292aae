package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/query"
)

// Admin Handlers. Every route here sits behind RequireAdmin.

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListAllOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrderAdmin(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(r.Context(), r.PathValue("id"), query.OrderAccess{IsAdmin: true})
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Order deleted"})
}

func (h *Handlers) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.queryHandler.SalesReport(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in inventory.NewProduct
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, err)
		return
	}
	product, err := h.cmdHandler.CreateProduct(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, product)
}

func (h *Handlers) SetStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock *int `json:"stock"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	if req.Stock == nil {
		h.respondError(w, inventory.ErrInvalidStock)
		return
	}
	product, err := h.cmdHandler.SetStock(r.Context(), r.PathValue("id"), *req.Stock)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, product)
}

func (h *Handlers) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.queryHandler.ListDiscounts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, discounts)
}

func (h *Handlers) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.queryHandler.GetDiscount(r.Context(), r.PathValue("code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

func (h *Handlers) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var in discount.NewDiscount
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, err)
		return
	}
	d, err := h.cmdHandler.CreateDiscount(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handlers) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	var patch discount.Patch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondError(w, err)
		return
	}
	d, err := h.cmdHandler.UpdateDiscount(r.Context(), r.PathValue("code"), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}
