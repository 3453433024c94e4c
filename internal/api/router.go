package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/metrics"
)

func NewRouter(apiHandler *APIHandler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ZapLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/", apiHandler.DashboardPage)
	r.Get("/test-cases/{storyID}", apiHandler.TestCasesPage)
	r.Get("/story-details/{storyID}", apiHandler.StoryDetailsPage)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/generate-test-cases", apiHandler.GenerateTestCasesHandler)

		// Story service passthrough
		r.Route("/stories", func(r chi.Router) {
			r.Get("/", apiHandler.ListStoriesHandler)
			r.Post("/search", apiHandler.SearchStoriesHandler)
			r.Get("/projects", apiHandler.ProjectsHandler)
			r.Get("/{storyID}", apiHandler.GetStoryHandler)
			r.Get("/{storyID}/testcases", apiHandler.TestCasesHandler)
			r.Get("/{storyID}/testcases/{testCaseID}", apiHandler.OriginalTestCaseHandler)
			r.Get("/{storyID}/impacts", apiHandler.ImpactsHandler)
			r.Get("/{storyID}/download", apiHandler.DownloadHandler)
		})
		r.Get("/impacts/{impactID}", apiHandler.ImpactDetailsHandler)
		r.Get("/projects/{projectID}/impact-summary", apiHandler.ImpactSummaryHandler)
		r.Get("/reload", apiHandler.NextReloadHandler)
		r.Post("/reload", apiHandler.TriggerReloadHandler)

		// Chat routes
		r.Post("/chat/sessions", apiHandler.CreateChatSessionHandler)
		r.Get("/chat/sessions/{sessionID}", apiHandler.GetChatSessionHandler)
		r.Post("/chat/sessions/{sessionID}/messages", apiHandler.PostChatMessageHandler)
	})

	return r
}
