package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scanbite/api/internal/config"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/enum"
	"github.com/scanbite/api/internal/handler"
	mw "github.com/scanbite/api/internal/middleware"
	"github.com/scanbite/api/internal/service"
	"github.com/shopspring/decimal"
)

// New creates a Chi router with all application routes wired up.
// Customer routes live under /t behind the table-session middleware;
// staff routes require a bearer token.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://*.scanbite.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Table-Session"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Session binding (public: this is how a scanned device gets its token)
	sessionService := service.NewSessionService(queries, cfg.JWTSecret)
	sessionHandler := handler.NewSessionHandler(sessionService)
	sessionHandler.RegisterRoutes(r)

	// Services shared between customer and staff surfaces
	defaultTaxRate, err := decimal.NewFromString(cfg.DefaultTaxRate)
	if err != nil {
		defaultTaxRate = decimal.NewFromInt(5)
	}
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore, defaultTaxRate)
	orderHandler := handler.NewOrderHandler(orderService, queries)

	callService := service.NewWaiterCallService(queries)
	callHandler := handler.NewCallHandler(callService, queries)

	newInvoiceStore := func(db database.DBTX) service.InvoiceStore {
		return database.New(db)
	}
	invoiceService := service.NewInvoiceService(pool, newInvoiceStore)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, queries)

	menuHandler := handler.NewMenuHandler(queries)

	// Customer routes (table-session gated)
	r.Route("/t", func(r chi.Router) {
		r.Use(mw.TableSession(cfg.JWTSecret))

		orderHandler.RegisterCustomerRoutes(r)
		callHandler.RegisterCustomerRoutes(r)
		menuHandler.RegisterCustomerRoutes(r)
	})

	// Staff routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/orders", orderHandler.RegisterStaffRoutes)
		r.Route("/calls", callHandler.RegisterStaffRoutes)
		r.Route("/invoices", invoiceHandler.RegisterRoutes)
		r.Route("/menu", menuHandler.RegisterStaffRoutes)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			tableHandler := handler.NewTableHandler(queries)
			r.Route("/tables", tableHandler.RegisterRoutes)

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	return r
}
