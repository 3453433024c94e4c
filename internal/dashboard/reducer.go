package dashboard

import (
	"maps"
	"strings"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

// Action is a user or network event the dashboard reacts to.
type Action interface {
	isAction()
}

type (
	StoriesRequested struct{}
	StoriesLoaded    struct{ Page storyapi.StoryPage }
	StoriesFailed    struct{ Err string }

	FilterField   string
	FilterChanged struct {
		Field FilterField
		Value string
	}
	// SearchResultsLoaded carries stories from an id or similarity lookup,
	// still to be refined by the date filters.
	SearchResultsLoaded struct{ Stories []storyapi.Story }
	FiltersCleared      struct{}

	PageChanged struct{ Page int }
	RowToggled  struct{ StoryID string }

	ChatToggled      struct{}
	ChatDraftChanged struct{ Text string }
	ChatSubmitted    struct{}
	ChatReplied      struct {
		Content  string
		Advisory string
	}
	ChatFailed struct{ Err string }

	PanelPointerDown struct {
		Edge Edge
		X, Y float64
	}
	PanelPointerMoved struct{ X, Y float64 }
	PanelPointerUp    struct{}
	ViewportResized   struct{ Size Size }
)

const (
	FieldStoryID     FilterField = "story_id"
	FieldDescription FilterField = "description"
	FieldFromDate    FilterField = "from_date"
	FieldToDate      FilterField = "to_date"
	FieldProjectID   FilterField = "project_id"
	FieldSortOrder   FilterField = "sort_order"
)

func (StoriesRequested) isAction()    {}
func (StoriesLoaded) isAction()       {}
func (StoriesFailed) isAction()       {}
func (FilterChanged) isAction()       {}
func (SearchResultsLoaded) isAction() {}
func (FiltersCleared) isAction()      {}
func (PageChanged) isAction()         {}
func (RowToggled) isAction()          {}
func (ChatToggled) isAction()         {}
func (ChatDraftChanged) isAction()    {}
func (ChatSubmitted) isAction()       {}
func (ChatReplied) isAction()         {}
func (ChatFailed) isAction()          {}
func (PanelPointerDown) isAction()    {}
func (PanelPointerMoved) isAction()   {}
func (PanelPointerUp) isAction()      {}
func (ViewportResized) isAction()     {}

// Reduce returns the state after action. It never modifies s; slices and maps
// that change are copied first.
func Reduce(s ViewState, action Action) ViewState {
	switch a := action.(type) {
	case StoriesRequested:
		s.Loading = true
		s.Error = ""

	case StoriesLoaded:
		s.Loading = false
		s.Error = ""
		s.SearchActive = false
		s.Stories = append([]storyapi.Story{}, a.Page.Stories...)
		s.TotalPages = max(a.Page.TotalPages, 1)
		s.Page = min(max(a.Page.CurrentPage, 1), s.TotalPages)
		s.TotalStories = a.Page.TotalStories
		s.Expanded = map[string]bool{}

	case StoriesFailed:
		s.Loading = false
		s.Error = a.Err

	case FilterChanged:
		s.Filters = s.Filters.with(a.Field, a.Value)

	case SearchResultsLoaded:
		refine := Filters{FromDate: s.Filters.FromDate, ToDate: s.Filters.ToDate}
		s.Stories = FilterStories(a.Stories, refine)
		s.SearchActive = true
		s.Loading = false
		s.Error = ""
		s.Page = 1
		s.TotalPages = 1
		s.TotalStories = len(s.Stories)
		s.Expanded = map[string]bool{}

	case FiltersCleared:
		s.Filters = Filters{SortOrder: s.Filters.SortOrder}
		s.Page = 1

	case PageChanged:
		if s.SearchActive {
			break
		}
		s.Page = min(max(a.Page, 1), max(s.TotalPages, 1))

	case RowToggled:
		expanded := maps.Clone(s.Expanded)
		if expanded == nil {
			expanded = map[string]bool{}
		}
		if expanded[a.StoryID] {
			delete(expanded, a.StoryID)
		} else {
			expanded[a.StoryID] = true
		}
		s.Expanded = expanded

	case ChatToggled:
		s.ChatOpen = !s.ChatOpen
		s.Resize = ResizeState{}

	case ChatDraftChanged:
		s.ChatDraft = a.Text

	case ChatSubmitted:
		text := strings.TrimSpace(s.ChatDraft)
		if text == "" || s.Generating {
			break
		}
		s.Chat = appendChat(s.Chat, ChatMessage{Role: "user", Content: text})
		s.ChatDraft = ""
		s.APIError = ""
		s.Generating = true

	case ChatReplied:
		s.Chat = appendChat(s.Chat, ChatMessage{Role: "assistant", Content: a.Content})
		s.Generating = false
		s.APIError = a.Advisory

	case ChatFailed:
		s.Chat = appendChat(s.Chat, ChatMessage{Role: "assistant", Content: ChatFailureReply})
		s.Generating = false
		s.APIError = ChatFailureAdvisory
		if a.Err != "" {
			s.APIError = a.Err
		}

	case PanelPointerDown:
		if !s.ChatOpen || !a.Edge.valid() {
			break
		}
		s.Resize = ResizeState{Edge: a.Edge, StartX: a.X, StartY: a.Y, StartSize: s.Panel}

	case PanelPointerMoved:
		if !s.Resize.Dragging() {
			break
		}
		s.Panel = s.Resize.dragTo(a.X, a.Y, s.Viewport)

	case PanelPointerUp:
		s.Resize = ResizeState{}

	case ViewportResized:
		s.Viewport = a.Size
		s.Panel = ClampSize(s.Panel, a.Size)
	}
	return s
}

func (f Filters) with(field FilterField, value string) Filters {
	switch field {
	case FieldStoryID:
		f.StoryID = value
	case FieldDescription:
		f.Description = value
	case FieldFromDate:
		f.FromDate = value
	case FieldToDate:
		f.ToDate = value
	case FieldProjectID:
		f.ProjectID = value
	case FieldSortOrder:
		if strings.EqualFold(value, "asc") {
			f.SortOrder = "asc"
		} else {
			f.SortOrder = "desc"
		}
	}
	return f
}

func appendChat(chat []ChatMessage, msg ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(chat), len(chat)+1)
	copy(out, chat)
	return append(out, msg)
}
