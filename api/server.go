/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request logger, also stored in the request context
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/companies                          Company list
  /api/companies/{company}/*              Company document, employees, payroll
  /api/scenarios                          Demo data sets

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/payroll-engine/logctx"
	"github.com/warp/payroll-engine/payroll"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/companies", h.ListCompanies)

		r.Route("/companies/{company}", func(r chi.Router) {
			r.Use(h.companyCtx)

			r.Post("/document", h.InitializeDocument)
			r.Get("/backups", h.ListBackups)

			// Holiday routes
			r.Get("/holidays", h.ListHolidays)
			r.Post("/holidays", h.CreateHoliday)
			r.Delete("/holidays/{id}", h.DeleteHoliday)

			// Scenario routes
			r.Post("/scenarios", h.LoadScenario)

			// Company-wide monthly routes
			r.Route("/periods/{period}", func(r chi.Router) {
				r.Get("/employees", h.ListActive)
				r.Get("/payroll", h.RunPayroll)
			})

			// Employee routes
			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Post("/", h.RegisterEmployee)

				r.Route("/{employee}/periods/{period}", func(r chi.Router) {
					r.Get("/snapshot", h.GetSnapshot)
					r.Patch("/snapshot", h.UpdateField)
					r.Get("/history", h.GetHistory)
					r.Post("/termination", h.Terminate)

					r.Get("/absences", h.ListAbsences)
					r.Post("/absences", h.RecordAbsence)
					r.Delete("/absences/{index}", h.DeleteEntry(payroll.LedgerAbsences))

					r.Get("/overtime", h.ListOvertime)
					r.Post("/overtime", h.RecordOvertime)
					r.Delete("/overtime/{index}", h.DeleteEntry(payroll.LedgerOvertime))

					r.Get("/totals", h.GetTotals)
					r.Get("/payroll", h.GetPayroll)
				})
			})
		})

		r.Get("/scenarios", h.ListScenarios)
	})

	return r
}

// requestLogger logs one line per request and stores a request-scoped
// logger, tagged with the chi request id, in the context.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logctx.WithLogger(r.Context(), log)))

			log.Info("request",
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
