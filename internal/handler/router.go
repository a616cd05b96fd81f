// internal/handler/router.go
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach/internal/controller"
)

// NewRouter wires every HTTP route of the orchestrator API.
func NewRouter(runs *controller.RunController, campaigns *controller.CampaignController, senders *controller.SenderController, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.With(zap.String("component", "http"))))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Run routes
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", runs.CreateRun)
		r.Get("/", runs.ListRuns)
		r.Get("/{id}", runs.GetRun)
		r.Get("/{id}/events", runs.ListEvents)
		r.Post("/{id}/start", runs.StartRun)
		r.Post("/{id}/pause", runs.PauseRun)
		r.Post("/{id}/resume", runs.ResumeRun)
		r.Post("/{id}/stop", runs.StopRun)
		r.Post("/{id}/plan", runs.PlanRun)
	})

	// Queue routes
	r.Get("/queue", runs.ListQueue)
	r.Get("/queue/{id}", runs.GetQueueItem)

	// Campaign, segment and contact routes
	r.Post("/campaigns", campaigns.CreateCampaign)
	r.Get("/campaigns", campaigns.ListCampaigns)
	r.Get("/campaigns/{id}", campaigns.GetCampaign)
	r.Post("/campaigns/{id}/archive", campaigns.ArchiveCampaign)
	r.Route("/segments", func(r chi.Router) {
		r.Post("/", campaigns.CreateSegment)
		r.Get("/", campaigns.ListSegments)
		r.Get("/{id}", campaigns.GetSegment)
		r.Post("/{id}/archive", campaigns.ArchiveSegment)
	})
	r.Post("/contacts", campaigns.CreateContact)

	// Sender account routes
	r.Route("/senders", func(r chi.Router) {
		r.Post("/", senders.CreateSender)
		r.Get("/", senders.ListSenders)
		r.Get("/{id}", senders.GetSender)
		r.Post("/{id}/state", senders.UpdateSenderState)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
