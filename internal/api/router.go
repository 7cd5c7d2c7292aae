package api

import (
	"context"
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
	Metrics      *metrics.StorefrontMetrics
	// MetricsHandler serves /metrics; defaults to the global registry.
	MetricsHandler http.Handler
	Health         Pinger
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	handlers := cfg.Handlers

	optional := func(h http.HandlerFunc) http.Handler {
		return middleware.OptionalAuthMiddleware(cfg.JWTService)(h)
	}
	authenticated := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(cfg.JWTService)(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(cfg.JWTService)(middleware.RequireAdmin()(h))
	}
	methodNotAllowed := func(w http.ResponseWriter) {
		middleware.WriteJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	}

	// Products
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetProducts(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetProduct(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Cart
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCart(w, r)
		case http.MethodPost:
			handlers.AddToCart(w, r)
		case http.MethodPut:
			handlers.UpdateCartItem(w, r)
		case http.MethodDelete:
			handlers.RemoveFromCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/cart/refresh", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.RefreshCart(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Checkout and orders
	mux.HandleFunc("/checkout", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			optional(handlers.Checkout).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			authenticated(handlers.GetOrders).ServeHTTP(w, r)
		case http.MethodPost:
			optional(handlers.PlaceOrder).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			optional(handlers.GetOrder).ServeHTTP(w, r)
		case http.MethodPatch:
			admin(handlers.UpdateOrderStatus).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/orders/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			authenticated(handlers.CancelOrder).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/track/{trackingNumber}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.TrackOrder(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Discounts
	mux.HandleFunc("/discounts/validate", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.ValidateDiscount(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Admin
	mux.HandleFunc("/admin/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin(handlers.GetProducts).ServeHTTP(w, r)
		case http.MethodPost:
			admin(handlers.CreateProduct).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/admin/products/{id}/stock", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			admin(handlers.SetStock).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/admin/discounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin(handlers.ListDiscounts).ServeHTTP(w, r)
		case http.MethodPost:
			admin(handlers.CreateDiscount).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/admin/discounts/{code}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin(handlers.GetDiscount).ServeHTTP(w, r)
		case http.MethodPatch:
			admin(handlers.UpdateDiscount).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin(handlers.GetAllOrders).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin(handlers.GetOrderAdmin).ServeHTTP(w, r)
		case http.MethodDelete:
			admin(handlers.DeleteOrder).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/admin/reports/sales", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			admin(handlers.SalesReport).ServeHTTP(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	// Auth
	if ah := cfg.AuthHandlers; ah != nil {
		mux.HandleFunc("POST /auth/register", ah.Register)
		mux.HandleFunc("POST /auth/login", ah.Login)
		mux.Handle("POST /auth/logout", optional(ah.Logout))
		mux.HandleFunc("POST /auth/refresh", ah.Refresh)
		mux.Handle("GET /auth/me", authenticated(ah.Me))
	}

	// Ops
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				middleware.WriteJSONError(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.Logging(cfg.Metrics)(mux)
}
