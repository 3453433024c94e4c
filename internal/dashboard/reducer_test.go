package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

var viewport = Size{Width: 1280, Height: 800}

func TestNewViewState(t *testing.T) {
	s := NewViewState(viewport)

	assert.Equal(t, 1, s.Page)
	assert.Equal(t, PerPage, s.PerPage)
	require.Len(t, s.Chat, 1)
	assert.Equal(t, ChatGreeting, s.Chat[0].Content)
	assert.Equal(t, DefaultPanelSize, s.Panel)

	_, err := json.Marshal(s)
	assert.NoError(t, err)
}

func TestReduce_StoriesLoadedAndPaging(t *testing.T) {
	s := NewViewState(viewport)
	s = Reduce(s, StoriesRequested{})
	assert.True(t, s.Loading)

	s = Reduce(s, StoriesLoaded{Page: storyapi.StoryPage{
		Stories:     []storyapi.Story{{ID: "US-1"}, {ID: "US-2"}},
		TotalPages:  3,
		CurrentPage: 1,
	}})
	assert.False(t, s.Loading)
	assert.Len(t, s.Stories, 2)
	assert.Equal(t, 3, s.TotalPages)

	assert.Equal(t, 3, Reduce(s, PageChanged{Page: 10}).Page)
	assert.Equal(t, 1, Reduce(s, PageChanged{Page: 0}).Page)
	assert.Equal(t, 2, Reduce(s, PageChanged{Page: 2}).Page)

	failed := Reduce(Reduce(s, StoriesRequested{}), StoriesFailed{Err: "Failed to fetch stories"})
	assert.False(t, failed.Loading)
	assert.Equal(t, "Failed to fetch stories", failed.Error)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := NewViewState(viewport)
	s = Reduce(s, RowToggled{StoryID: "US-1"})
	s = Reduce(s, ChatDraftChanged{Text: "Login"})

	before := s
	beforeChat := append([]ChatMessage{}, s.Chat...)

	next := Reduce(s, ChatSubmitted{})
	next = Reduce(next, RowToggled{StoryID: "US-2"})

	assert.Equal(t, beforeChat, s.Chat)
	assert.Equal(t, map[string]bool{"US-1": true}, s.Expanded)
	assert.Equal(t, "Login", before.ChatDraft)
	assert.Len(t, next.Chat, 2)
	assert.Equal(t, map[string]bool{"US-1": true, "US-2": true}, next.Expanded)
}

func TestReduce_RowToggle(t *testing.T) {
	s := NewViewState(viewport)
	s = Reduce(s, RowToggled{StoryID: "US-1"})
	assert.True(t, s.Expanded["US-1"])
	s = Reduce(s, RowToggled{StoryID: "US-1"})
	assert.False(t, s.Expanded["US-1"])
}

func TestReduce_ChatFlow(t *testing.T) {
	s := NewViewState(viewport)

	blank := Reduce(Reduce(s, ChatDraftChanged{Text: "   "}), ChatSubmitted{})
	assert.Len(t, blank.Chat, 1)
	assert.False(t, blank.Generating)

	s = Reduce(s, ChatDraftChanged{Text: "  Checkout flow  "})
	s = Reduce(s, ChatSubmitted{})
	require.Len(t, s.Chat, 2)
	assert.Equal(t, ChatMessage{Role: "user", Content: "Checkout flow"}, s.Chat[1])
	assert.Empty(t, s.ChatDraft)
	assert.True(t, s.Generating)

	// ignored while a reply is pending
	again := Reduce(Reduce(s, ChatDraftChanged{Text: "another"}), ChatSubmitted{})
	assert.Len(t, again.Chat, 2)

	replied := Reduce(s, ChatReplied{Content: "# QA Support Response", Advisory: "mock"})
	assert.False(t, replied.Generating)
	assert.Equal(t, "mock", replied.APIError)
	assert.Equal(t, "assistant", replied.Chat[2].Role)

	failed := Reduce(s, ChatFailed{})
	assert.False(t, failed.Generating)
	assert.Equal(t, ChatFailureReply, failed.Chat[2].Content)
	assert.Equal(t, ChatFailureAdvisory, failed.APIError)
}

func TestReduce_Filters(t *testing.T) {
	s := NewViewState(viewport)
	s = Reduce(s, FilterChanged{Field: FieldStoryID, Value: "US-9"})
	s = Reduce(s, FilterChanged{Field: FieldSortOrder, Value: "ASC"})
	assert.Equal(t, "US-9", s.Filters.StoryID)
	assert.Equal(t, "asc", s.Filters.SortOrder)

	s = Reduce(s, FiltersCleared{})
	assert.True(t, s.Filters.IsEmpty())
	assert.Equal(t, "asc", s.Filters.SortOrder)
}

func TestReduce_SearchResultsAreDateRefined(t *testing.T) {
	s := NewViewState(viewport)
	s = Reduce(s, FilterChanged{Field: FieldDescription, Value: "password"})
	s = Reduce(s, FilterChanged{Field: FieldFromDate, Value: "2024-05-01"})

	s = Reduce(s, SearchResultsLoaded{Stories: []storyapi.Story{
		{ID: "US-1", Description: "Reset credentials", CreatedOn: "2024-05-02T09:00:00"},
		{ID: "US-2", Description: "Reset password", CreatedOn: "2024-04-02T09:00:00"},
		{ID: "US-3", Description: "Forgot password"},
	}})

	require.Len(t, s.Stories, 1)
	assert.Equal(t, "US-1", s.Stories[0].ID)
	assert.True(t, s.SearchActive)
	assert.Equal(t, 1, s.TotalPages)
	assert.Equal(t, 1, Reduce(s, PageChanged{Page: 2}).Page)
}

func TestReduce_PanelResize(t *testing.T) {
	s := NewViewState(viewport)

	// ignored while the chat is closed
	assert.False(t, Reduce(s, PanelPointerDown{Edge: EdgeLeft, X: 100, Y: 100}).Resize.Dragging())

	s = Reduce(s, ChatToggled{})
	s = Reduce(s, PanelPointerDown{Edge: EdgeTopLeft, X: 800, Y: 200})
	require.True(t, s.Resize.Dragging())

	s = Reduce(s, PanelPointerMoved{X: 700, Y: 150})
	assert.Equal(t, Size{Width: 500, Height: 610}, s.Panel)

	s = Reduce(s, PanelPointerMoved{X: 1200, Y: 600})
	assert.Equal(t, Size{Width: MinPanelWidth, Height: MinPanelHeight}, s.Panel)

	s = Reduce(s, PanelPointerMoved{X: -2000, Y: -2000})
	assert.Equal(t, viewport, s.Panel)

	s = Reduce(s, PanelPointerUp{})
	assert.False(t, s.Resize.Dragging())
	moved := Reduce(s, PanelPointerMoved{X: 0, Y: 0})
	assert.Equal(t, s.Panel, moved.Panel)

	s = Reduce(s, PanelPointerDown{Edge: EdgeLeft, X: 500, Y: 500})
	s = Reduce(s, PanelPointerMoved{X: 480, Y: 0})
	assert.Equal(t, viewport.Height, s.Panel.Height)

	s = Reduce(s, ViewportResized{Size: Size{Width: 600, Height: 500}})
	assert.Equal(t, Size{Width: 600, Height: 500}, s.Panel)
}

func TestClampSize(t *testing.T) {
	assert.Equal(t, Size{Width: 320, Height: 360}, ClampSize(Size{Width: 10, Height: 10}, viewport))
	assert.Equal(t, Size{Width: 1280, Height: 800}, ClampSize(Size{Width: 5000, Height: 5000}, viewport))
	assert.Equal(t, Size{Width: 320, Height: 360}, ClampSize(Size{Width: 500, Height: 500}, Size{Width: 200, Height: 200}))
	assert.Equal(t, Size{Width: 450, Height: 500}, ClampSize(Size{Width: 450, Height: 500}, viewport))
}
