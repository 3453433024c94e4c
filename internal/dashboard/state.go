// Package dashboard models the dashboard page as plain data: a serializable
// ViewState, pure transitions over it, and the filtering and normalization
// rules the page applies to story service payloads.
package dashboard

import (
	"gwi.com/testcase-dashboard/internal/storyapi"
)

const (
	PerPage = 10

	ChatGreeting = "Hello! I can help you generate test cases. Describe a feature or user story, and I'll create comprehensive test cases for you."

	ChatFailureReply    = "I'm using mock test cases for demonstration. In production, you would connect to the Gemini API."
	ChatFailureAdvisory = "Using mock test cases. To use Gemini API, add GOOGLE_GENERATIVE_AI_API_KEY to your environment."
)

type Filters struct {
	StoryID     string `json:"story_id"`
	Description string `json:"description"`
	FromDate    string `json:"from_date"` // YYYY-MM-DD
	ToDate      string `json:"to_date"`   // YYYY-MM-DD
	ProjectID   string `json:"project_id"`
	SortOrder   string `json:"sort_order"` // "asc" or "desc"
}

// IsEmpty reports whether no search criterion is set. Sort order is not a criterion.
func (f Filters) IsEmpty() bool {
	return f.StoryID == "" && f.Description == "" && f.FromDate == "" && f.ToDate == "" && f.ProjectID == ""
}

type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type ViewState struct {
	Stories      []storyapi.Story `json:"stories"`
	Page         int              `json:"page"`
	TotalPages   int              `json:"total_pages"`
	PerPage      int              `json:"per_page"`
	TotalStories int              `json:"total_stories"`
	// SearchActive is set while Stories holds search results instead of a page.
	SearchActive bool    `json:"search_active"`
	Filters      Filters `json:"filters"`
	Loading      bool    `json:"loading"`
	Error        string  `json:"error,omitempty"`

	Expanded map[string]bool `json:"expanded"`

	ChatOpen   bool          `json:"chat_open"`
	Chat       []ChatMessage `json:"chat"`
	ChatDraft  string        `json:"chat_draft"`
	Generating bool          `json:"generating"`
	APIError   string        `json:"api_error,omitempty"`

	Viewport Size        `json:"viewport"`
	Panel    Size        `json:"panel"`
	Resize   ResizeState `json:"resize"`
}

// NewViewState returns the state of a freshly opened dashboard.
func NewViewState(viewport Size) ViewState {
	return ViewState{
		Stories:    []storyapi.Story{},
		Page:       1,
		TotalPages: 1,
		PerPage:    PerPage,
		Filters:    Filters{SortOrder: "desc"},
		Expanded:   map[string]bool{},
		Chat:       []ChatMessage{{Role: "assistant", Content: ChatGreeting}},
		Viewport:   viewport,
		Panel:      ClampSize(DefaultPanelSize, viewport),
	}
}

// ListParams converts the current page and filters into a story list query.
func (s ViewState) ListParams() storyapi.ListParams {
	return storyapi.ListParams{
		Page:      s.Page,
		PerPage:   s.PerPage,
		FromDate:  s.Filters.FromDate,
		ToDate:    s.Filters.ToDate,
		ProjectID: s.Filters.ProjectID,
		SortOrder: s.Filters.SortOrder,
	}
}
