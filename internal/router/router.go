package router

import (
	"net/http"
	"strconv"
	"time"

	analytics_api "dinner-ticketing/internal/analytics/api"
	"dinner-ticketing/internal/auth"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/order/order_api"
	"dinner-ticketing/internal/tickets/ticket_api"
	"dinner-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the handlers and collaborators the HTTP surface is built from.
type Deps struct {
	Orders    *order_api.Handler
	Tickets   *ticket_api.Handler
	Analytics *analytics_api.Handler
	Stream    *order_api.SSEHandler
	Verifier  auth.Verifier
	Logger    *logger.Logger
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		MaxAge:             300,
		OptionsPassthrough: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		r.Post("/orders", d.Orders.CreateOrder)
		r.Post("/payments/status", d.Orders.PaymentStatus)
		r.Post("/payments/callback", d.Orders.PaymentCallback)
		d.Logger.Info("ROUTER", "Public order and payment routes registered under /api")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(d.Verifier, d.Logger))

			r.Post("/tickets/verify", d.Tickets.VerifyTicket)
			r.Post("/tickets/lookup", d.Tickets.LookupTicket)
			r.Post("/tickets/resend", d.Orders.ResendTicket)
			r.Route("/admin", func(r chi.Router) {
				d.Analytics.RegisterRoutes(r)
				r.Get("/events", d.Stream.HandleOrderEvents)
			})
			d.Logger.Info("ROUTER", "Staff routes registered under /api/tickets and /api/admin")
		})
	})

	return r
}

func accessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
