package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router exposes.
type Services struct {
	Budgets      *service.BudgetService
	Goals        *service.GoalService
	Reminders    *service.ReminderService
	Zakat        *service.ZakatService
	Gamification *service.GamificationService
	Refresher    *service.Refresher
	Events       *bus.Bus
	State        *localstate.Store

	// AllowedOrigins lists the browser origins permitted by CORS.
	// Empty means any origin.
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the FinMate frontend.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	origins := svcs.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Goals, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Budgets
		// =============================================
		r.Get("/users/{user}/budgets/overview", budgetOverviewHandler(svcs.Budgets, logger))
		r.Post("/users/{user}/budgets/shift-month", budgetShiftMonthHandler(svcs.Budgets, logger))
		r.Post("/users/{user}/budgets/categories", createBudgetCategoryHandler(svcs.Budgets, logger))
		r.Patch("/users/{user}/budgets/categories/{categoryId}", updateBudgetAllocationHandler(svcs.Budgets, logger))
		r.Delete("/users/{user}/budgets/categories/{categoryId}", deleteBudgetCategoryHandler(svcs.Budgets, logger))
		r.Get("/budgets/level", levelForPercentHandler())

		// =============================================
		// Goals & balance
		// =============================================
		r.Get("/users/{user}/goals", listGoalsHandler(svcs.Goals, logger))
		r.Post("/users/{user}/goals", createGoalHandler(svcs.Goals, logger))
		r.Put("/users/{user}/goals/{goalId}", updateGoalHandler(svcs.Goals, logger))
		r.Delete("/users/{user}/goals/{goalId}", deleteGoalHandler(svcs.Goals, logger))
		r.Post("/users/{user}/goals/allocate", allocateGoalHandler(svcs.Goals, logger))
		r.Get("/users/{user}/balance", balanceHandler(svcs.Goals, logger))

		// =============================================
		// Reminders & preferences
		// =============================================
		r.Get("/users/{user}/reminders", reminderFeedHandler(svcs.Reminders, logger))
		r.Post("/users/{user}/reminders/{reminderId}/dismiss", dismissReminderHandler(svcs.Reminders, logger))
		r.Post("/users/{user}/reminders/{reminderId}/complete", completeReminderHandler(svcs.Reminders, logger))
		r.Get("/users/{user}/preferences", getPreferencesHandler(svcs.Reminders))
		r.Put("/users/{user}/preferences", putPreferencesHandler(svcs.Reminders, logger))

		// =============================================
		// Zakat
		// =============================================
		r.Get("/users/{user}/zakat", zakatAssessmentHandler(svcs.Zakat, logger))
		r.Post("/users/{user}/zakat/paid", zakatPaidHandler(svcs.Zakat))

		// =============================================
		// Profile & onboarding
		// =============================================
		r.Get("/users/{user}/profile", getProfileHandler(svcs.Gamification))
		r.Get("/users/{user}/onboarding", getOnboardingHandler(svcs.State))
		r.Post("/users/{user}/onboarding", markOnboardingHandler(svcs.State))

		// =============================================
		// Event stream & refresh control
		// =============================================
		r.Get("/users/{user}/events", eventStreamHandler(svcs.Events, svcs.Refresher, logger))
		r.Delete("/users/{user}/refresh", untrackRefreshHandler(svcs.Refresher))

		// =============================================
		// Operational snapshot
		// =============================================
		r.Get("/metrics/refresh", refreshMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Probes & operational handlers
// ============================================================

// healthzHandler reports liveness plus a shallow upstream check: one
// balance read against the finance server with a short deadline.
func healthzHandler(goals *service.GoalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		upstream := "skipped"

		if goals != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			_, err := goals.AvailableBalance(ctx, "health-check")
			latency := time.Since(start).Milliseconds()
			upstream = "healthy"
			if err != nil {
				upstream = "degraded"
				logger.Debug("health check upstream probe failed",
					zap.Int64("latency_ms", latency),
					zap.Error(err),
				)
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":         "healthy",
			"finance_server": upstream,
			"checked_at":     now,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func refreshMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetRefreshSnapshot())
	}
}

func untrackRefreshHandler(refresher *service.Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if refresher != nil {
			refresher.Untrack(chi.URLParam(r, "user"))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
