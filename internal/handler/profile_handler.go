package handler

import (
	"net/http"

	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
)

// ============================================================
// Gamification profile & onboarding — /v1/users/{user}/profile
// ============================================================

func getProfileHandler(svc *service.GamificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")
		writeJSON(w, http.StatusOK, svc.Profile(user))
	}
}

func onboardingFlow(r *http.Request) string {
	if flow := r.URL.Query().Get("flow"); flow != "" {
		return flow
	}
	return "main"
}

func getOnboardingHandler(state *localstate.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")
		writeJSON(w, http.StatusOK, map[string]bool{"seen": state.OnboardingSeen(user, onboardingFlow(r))})
	}
}

func markOnboardingHandler(state *localstate.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")
		state.MarkOnboardingSeen(user, onboardingFlow(r))
		w.WriteHeader(http.StatusNoContent)
	}
}
