package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Event stream — GET /v1/users/{user}/events
// ============================================================

// eventStreamHandler pushes change events to the client over SSE so
// every open view converges after a mutation without manual reloads.
// Connecting also enrolls the user in the background refresher; the
// enrollment is idempotent and survives the connection, so a user with
// several open views is polled once.
func eventStreamHandler(events *bus.Bus, refresher *service.Refresher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		ch, cancel := events.Subscribe()
		defer cancel()

		if refresher != nil {
			refresher.Track(user)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		logger.Debug("event stream opened", zap.String("user", user))

		for {
			select {
			case <-r.Context().Done():
				logger.Debug("event stream closed", zap.String("user", user))
				return
			case e, open := <-ch:
				if !open {
					return
				}
				if e.User != "" && e.User != user {
					continue
				}
				data, err := json.Marshal(e)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Topic, data)
				flusher.Flush()
			}
		}
	}
}
