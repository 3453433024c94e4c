package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/dashboard"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

const maxSearchLimit = 50

// storyError maps a story service failure onto the dashboard's response.
func (h *APIHandler) storyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case storyapi.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storyapi.ErrUpstream), errors.Is(err, storyapi.ErrValidation):
		h.logger.Warn("Story service request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Error("Unexpected story service error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func filtersFromQuery(r *http.Request) dashboard.Filters {
	q := r.URL.Query()
	return dashboard.Filters{
		StoryID:     q.Get("story_id"),
		Description: q.Get("description"),
		FromDate:    q.Get("from_date"),
		ToDate:      q.Get("to_date"),
		ProjectID:   q.Get("project_id"),
		SortOrder:   q.Get("sort_order"),
	}
}

// searchStories executes the search plan for f and returns a page-shaped result.
func (h *APIHandler) searchStories(ctx context.Context, f dashboard.Filters, page, perPage int) (*storyapi.StoryPage, error) {
	plan := dashboard.PlanSearch(f, perPage)
	switch plan.Kind {
	case dashboard.SearchByID:
		story, err := h.stories.GetStory(ctx, plan.ID)
		if err != nil {
			if storyapi.IsNotFound(err) {
				return singlePage(nil), nil
			}
			return nil, err
		}
		return singlePage(dashboard.FilterStories([]storyapi.Story{*story}, plan.Refine)), nil

	case dashboard.SearchSimilarity:
		stories, err := h.stories.SearchStories(ctx, plan.Query, 0)
		if err != nil {
			return nil, err
		}
		return singlePage(dashboard.FilterStories(stories, plan.Refine)), nil

	default:
		params := plan.List
		params.Page = page
		return h.stories.ListStories(ctx, params)
	}
}

func singlePage(stories []storyapi.Story) *storyapi.StoryPage {
	if stories == nil {
		stories = []storyapi.Story{}
	}
	return &storyapi.StoryPage{Stories: stories, TotalPages: 1, CurrentPage: 1, TotalStories: len(stories)}
}

func intQuery(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// ListStoriesHandler serves a page of stories. story_id and description
// switch to an id lookup or a similarity search over the whole dataset.
func (h *APIHandler) ListStoriesHandler(w http.ResponseWriter, r *http.Request) {
	page := max(intQuery(r, "page", 1), 1)
	perPage := intQuery(r, "per_page", dashboard.PerPage)
	if perPage < 1 || perPage > 100 {
		perPage = dashboard.PerPage
	}

	result, err := h.searchStories(r.Context(), filtersFromQuery(r), page, perPage)
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *APIHandler) SearchStoriesHandler(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON[searchRequest](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}

	stories, err := h.stories.SearchStories(r.Context(), req.Query, req.Limit)
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": stories})
}

func (h *APIHandler) ProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.stories.GetProjects(r.Context())
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *APIHandler) GetStoryHandler(w http.ResponseWriter, r *http.Request) {
	story, err := h.stories.GetStory(r.Context(), chi.URLParam(r, "storyID"))
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *APIHandler) TestCasesHandler(w http.ResponseWriter, r *http.Request) {
	set, err := h.stories.GetTestCases(r.Context(), chi.URLParam(r, "storyID"))
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *APIHandler) OriginalTestCaseHandler(w http.ResponseWriter, r *http.Request) {
	tc, err := h.stories.GetOriginalTestCase(r.Context(), chi.URLParam(r, "storyID"), chi.URLParam(r, "testCaseID"))
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

type impactsResponse struct {
	StoryID           string                      `json:"story_id"`
	ImpactedTestCases []storyapi.ImpactedTestCase `json:"impacted_test_cases"`
}

func (h *APIHandler) loadImpacts(ctx context.Context, storyID string) ([]storyapi.ImpactedTestCase, error) {
	raw, err := h.stories.GetStoryImpacts(ctx, storyID)
	if err != nil {
		return nil, err
	}
	impacted, parseErrs := dashboard.NormalizeImpacts(*raw)
	for _, perr := range parseErrs {
		h.logger.Warn("Error parsing impact analysis JSON", zap.String("storyID", storyID), zap.Error(perr))
	}
	return impacted, nil
}

func (h *APIHandler) ImpactsHandler(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	impacted, err := h.loadImpacts(r.Context(), storyID)
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, impactsResponse{StoryID: storyID, ImpactedTestCases: impacted})
}

func (h *APIHandler) ImpactDetailsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeOpaque(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return h.stories.GetImpactDetails(ctx, chi.URLParam(r, "impactID"))
	})
}

func (h *APIHandler) ImpactSummaryHandler(w http.ResponseWriter, r *http.Request) {
	h.writeOpaque(w, r, func(ctx context.Context) (json.RawMessage, error) {
		return h.stories.GetImpactSummary(ctx, chi.URLParam(r, "projectID"))
	})
}

func (h *APIHandler) NextReloadHandler(w http.ResponseWriter, r *http.Request) {
	h.writeOpaque(w, r, h.stories.NextReload)
}

func (h *APIHandler) TriggerReloadHandler(w http.ResponseWriter, r *http.Request) {
	h.writeOpaque(w, r, h.stories.TriggerReload)
}

func (h *APIHandler) writeOpaque(w http.ResponseWriter, r *http.Request, fetch func(context.Context) (json.RawMessage, error)) {
	payload, err := fetch(r.Context())
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// DownloadHandler streams the story's test case spreadsheet.
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	download, err := h.stories.DownloadTestCases(r.Context(), chi.URLParam(r, "storyID"))
	if err != nil {
		h.storyError(w, r, err)
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": download.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, download.Body); err != nil {
		h.logger.Warn("Failed to stream test case download", zap.Error(err))
	}
}
