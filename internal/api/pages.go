package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/dashboard"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"join":    strings.Join,
	"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"add":     func(a, b int) int { return a + b },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}).ParseFS(templateFS, "templates/*.html"))

// defaultViewport is used for the first render; the browser reports the real
// size once the chat panel opens.
var defaultViewport = dashboard.Size{Width: 1280, Height: 800}

type dashboardPage struct {
	State    dashboard.ViewState
	Projects []string

	FailureReply    string
	FailureAdvisory string
	MinWidth        int
	MinHeight       int
}

type testCasesPage struct {
	StoryID  string
	Set      *storyapi.TestCaseSet
	Error    string
	NotFound bool
}

type storyDetailsPage struct {
	StoryID  string
	Story    *storyapi.Story
	Impacts  []storyapi.ImpactedTestCase
	Error    string
	NotFound bool
}

func (h *APIHandler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("Failed to render page", zap.String("template", name), zap.Error(err))
	}
}

// DashboardPage renders the story table for the filters and page in the query string.
func (h *APIHandler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := dashboard.NewViewState(defaultViewport)

	filters := filtersFromQuery(r)
	for field, value := range map[dashboard.FilterField]string{
		dashboard.FieldStoryID:     filters.StoryID,
		dashboard.FieldDescription: filters.Description,
		dashboard.FieldFromDate:    filters.FromDate,
		dashboard.FieldToDate:      filters.ToDate,
		dashboard.FieldProjectID:   filters.ProjectID,
		dashboard.FieldSortOrder:   filters.SortOrder,
	} {
		if value != "" {
			state = dashboard.Reduce(state, dashboard.FilterChanged{Field: field, Value: value})
		}
	}
	state = dashboard.Reduce(state, dashboard.StoriesRequested{})

	plan := dashboard.PlanSearch(state.Filters, state.PerPage)
	switch plan.Kind {
	case dashboard.SearchList:
		params := state.ListParams()
		params.Page = max(intQuery(r, "page", 1), 1)
		page, err := h.stories.ListStories(ctx, params)
		if err != nil {
			h.logger.Warn("Failed to load stories", zap.Error(err))
			state = dashboard.Reduce(state, dashboard.StoriesFailed{Err: err.Error()})
		} else {
			state = dashboard.Reduce(state, dashboard.StoriesLoaded{Page: *page})
		}
	default:
		result, err := h.searchStories(ctx, state.Filters, 1, state.PerPage)
		if err != nil {
			h.logger.Warn("Failed to search stories", zap.Error(err))
			state = dashboard.Reduce(state, dashboard.StoriesFailed{Err: err.Error()})
		} else {
			state = dashboard.Reduce(state, dashboard.SearchResultsLoaded{Stories: result.Stories})
		}
	}

	for _, id := range r.URL.Query()["expand"] {
		state = dashboard.Reduce(state, dashboard.RowToggled{StoryID: id})
	}

	projects, err := h.stories.GetProjects(ctx)
	if err != nil {
		h.logger.Warn("Failed to load projects", zap.Error(err))
	}

	h.renderPage(w, http.StatusOK, "dashboard", dashboardPage{
		State:           state,
		Projects:        projects,
		FailureReply:    dashboard.ChatFailureReply,
		FailureAdvisory: dashboard.ChatFailureAdvisory,
		MinWidth:        dashboard.MinPanelWidth,
		MinHeight:       dashboard.MinPanelHeight,
	})
}

func (h *APIHandler) TestCasesPage(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	data := testCasesPage{StoryID: storyID}

	set, err := h.stories.GetTestCases(r.Context(), storyID)
	if err != nil {
		h.renderPage(w, pageErrorStatus(err), "testcases", data.withError(err))
		return
	}
	data.Set = set
	h.renderPage(w, http.StatusOK, "testcases", data)
}

func (p testCasesPage) withError(err error) testCasesPage {
	p.Error = err.Error()
	p.NotFound = storyapi.IsNotFound(err)
	return p
}

func (h *APIHandler) StoryDetailsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storyID := chi.URLParam(r, "storyID")
	data := storyDetailsPage{StoryID: storyID}

	story, err := h.stories.GetStory(ctx, storyID)
	if err != nil {
		data.Error = err.Error()
		data.NotFound = storyapi.IsNotFound(err)
		h.renderPage(w, pageErrorStatus(err), "storydetails", data)
		return
	}
	data.Story = story

	impacts, err := h.loadImpacts(ctx, storyID)
	if err != nil {
		// The story itself is still worth showing.
		h.logger.Warn("Failed to load story impacts", zap.String("storyID", storyID), zap.Error(err))
		data.Error = err.Error()
	}
	data.Impacts = impacts
	h.renderPage(w, http.StatusOK, "storydetails", data)
}

func pageErrorStatus(err error) int {
	if storyapi.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (p dashboardPage) query() url.Values {
	f := p.State.Filters
	q := url.Values{}
	for key, value := range map[string]string{
		"story_id":    f.StoryID,
		"description": f.Description,
		"from_date":   f.FromDate,
		"to_date":     f.ToDate,
		"project_id":  f.ProjectID,
		"sort_order":  f.SortOrder,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q
}

// PageURL links to another page of the current listing.
func (p dashboardPage) PageURL(page int) string {
	q := p.query()
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}

// ToggleURL links to the current listing with storyID's row expanded or collapsed.
func (p dashboardPage) ToggleURL(storyID string) string {
	q := p.query()
	if !p.State.SearchActive {
		q.Set("page", strconv.Itoa(p.State.Page))
	}
	for id, open := range p.State.Expanded {
		if open && id != storyID {
			q.Add("expand", id)
		}
	}
	if !p.State.Expanded[storyID] {
		q.Add("expand", storyID)
	}
	return "/?" + q.Encode()
}
