package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/command"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/query"
	log "github.com/sirupsen/logrus"
)

const (
	cartCookieName = "cart_session"
	cartHeaderName = "X-Cart-Session"
)

var errBadBody = apperr.New(apperr.InvalidArgument, "invalid request body")

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	cookieSecure bool
	logger       *log.Entry
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, cookieSecure bool) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		cookieSecure: cookieSecure,
		logger:       log.WithField("component", "api"),
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.queryHandler.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, product)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.queryHandler.GetCart(r.Context(), h.cartSession(w, r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, err)
		return
	}
	cmd.SessionID = h.cartSession(w, r)

	h.respondCart(w, func() (*cart.Cart, error) { return h.cmdHandler.AddToCart(r.Context(), cmd) })
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateCartItem
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, err)
		return
	}
	cmd.SessionID = h.cartSession(w, r)

	h.respondCart(w, func() (*cart.Cart, error) { return h.cmdHandler.UpdateCartItem(r.Context(), cmd) })
}

// RemoveFromCart drops the line named by ?productId=, or clears the cart when
// no product is given.
func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.cartSession(w, r)
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		h.respondCart(w, func() (*cart.Cart, error) { return h.cmdHandler.ClearCart(r.Context(), sessionID) })
		return
	}
	cmd := command.RemoveFromCart{SessionID: sessionID, ProductID: productID}
	h.respondCart(w, func() (*cart.Cart, error) { return h.cmdHandler.RemoveFromCart(r.Context(), cmd) })
}

func (h *Handlers) RefreshCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.cartSession(w, r)
	h.respondCart(w, func() (*cart.Cart, error) { return h.cmdHandler.RefreshCart(r.Context(), sessionID) })
}

func (h *Handlers) respondCart(w http.ResponseWriter, fn func() (*cart.Cart, error)) {
	c, err := fn()
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// Order Handlers

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var cmd command.Checkout
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, err)
		return
	}
	cmd.SessionID = h.cartSession(w, r)
	cmd.Identity = middleware.OrderIdentity(r.Context())

	o, err := h.cmdHandler.Checkout(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, o)
}

// placeOrderRequest accepts the address under either "shippingAddress" or "address".
type placeOrderRequest struct {
	command.PlaceOrder
	Address *order.Address `json:"address"`
}

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	cmd := req.PlaceOrder
	if req.Address != nil && cmd.ShippingAddress == (order.Address{}) {
		cmd.ShippingAddress = *req.Address
	}
	cmd.Identity = middleware.OrderIdentity(r.Context())

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrdersByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orders)
}

// GetOrder serves owners, admins and, with ?email=, guest customers.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	access := query.OrderAccess{
		UserID:     middleware.GetUserID(r.Context()),
		IsAdmin:    middleware.IsAdmin(r.Context()),
		GuestEmail: r.URL.Query().Get("email"),
	}
	o, err := h.queryHandler.GetOrder(r.Context(), r.PathValue("id"), access)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrderStatus
	if err := decodeJSON(r, &cmd); err != nil {
		h.respondError(w, err)
		return
	}
	cmd.OrderID = r.PathValue("id")

	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, o)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	cmd := command.CancelOrder{
		OrderID:     r.PathValue("id"),
		RequesterID: middleware.GetUserID(r.Context()),
		IsAdmin:     middleware.IsAdmin(r.Context()),
	}
	o, err := h.cmdHandler.CancelOrder(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, o)
}

func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	info, err := h.queryHandler.TrackOrder(r.Context(), r.PathValue("trackingNumber"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, info)
}

// Discount Handlers

type validateDiscountRequest struct {
	Code string               `json:"code"`
	Cart []query.ValidateLine `json:"cart"`
}

// ValidateDiscount previews a code. Without cart lines in the body the
// caller's session cart is used.
func (h *Handlers) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req validateDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}
	res, err := h.queryHandler.ValidateDiscount(r.Context(), req.Code, req.Cart, existingCartSession(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Helper functions

// cartSession returns the caller's cart session, starting one when the
// request carries none, and echoes it in both the cookie and the header.
func (h *Handlers) cartSession(w http.ResponseWriter, r *http.Request) string {
	sessionID := existingCartSession(r)
	if sessionID == "" {
		sessionID = cart.NewSessionID()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   h.cookieSecure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(cartHeaderName, sessionID)
	return sessionID
}

func existingCartSession(r *http.Request) string {
	if cookie, err := r.Cookie(cartCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get(cartHeaderName)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// respondError maps err to its HTTP status. Internal failures are logged and
// answered with a generic message.
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, h.logger, err)
}
