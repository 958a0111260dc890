package handler

import (
	"net/http"

	"github.com/azkafin/finmate-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Zakat — /v1/users/{user}/zakat
// ============================================================

func zakatAssessmentHandler(svc *service.ZakatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{user}/zakat")
		defer span.End()

		user := chi.URLParam(r, "user")
		assessment, err := svc.Assess(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, assessment)
	}
}

func zakatPaidHandler(svc *service.ZakatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/users/{user}/zakat/paid")
		defer span.End()

		user := chi.URLParam(r, "user")
		svc.MarkPaid(user)
		w.WriteHeader(http.StatusNoContent)
	}
}
