package dashboard

import (
	"strings"
	"time"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

// FilterStories returns the stories matching every set criterion: exact id
// (case-insensitive), description substring (case-insensitive) and creation
// date within [FromDate, ToDate]. ToDate includes the whole day. Stories
// without a parseable creation date are dropped once a date bound is set.
func FilterStories(stories []storyapi.Story, f Filters) []storyapi.Story {
	id := strings.ToLower(strings.TrimSpace(f.StoryID))
	desc := strings.ToLower(strings.TrimSpace(f.Description))
	from, hasFrom := parseDay(f.FromDate)
	to, hasTo := parseDay(f.ToDate)
	if hasTo {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	filtered := make([]storyapi.Story, 0, len(stories))
	for _, story := range stories {
		if id != "" && strings.ToLower(story.ID) != id {
			continue
		}
		if desc != "" && !strings.Contains(strings.ToLower(story.Description), desc) {
			continue
		}
		if hasFrom || hasTo {
			created, ok := story.CreatedAt()
			if !ok {
				continue
			}
			if hasFrom && created.Before(from) {
				continue
			}
			if hasTo && created.After(to) {
				continue
			}
		}
		filtered = append(filtered, story)
	}
	return filtered
}

func parseDay(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type SearchKind string

const (
	// SearchList re-queries the paginated list with date and project filters.
	SearchList SearchKind = "list"
	// SearchByID fetches a single story by its id across the whole dataset.
	SearchByID SearchKind = "id"
	// SearchSimilarity sends the description to the similarity endpoint and
	// then applies the remaining filters to its results.
	SearchSimilarity SearchKind = "similarity"
)

// SearchPlan says how a set of filters is executed against the story service.
type SearchPlan struct {
	Kind   SearchKind
	ID     string
	Query  string
	List   storyapi.ListParams
	Refine Filters
}

// PlanSearch picks the query for f. Filters are always sent to the service
// rather than applied to the page already on screen, so results cover the
// whole dataset. Id and similarity lookups cannot be date-filtered by the
// service, so their results are refined locally with Refine.
func PlanSearch(f Filters, perPage int) SearchPlan {
	if id := strings.TrimSpace(f.StoryID); id != "" {
		return SearchPlan{Kind: SearchByID, ID: id, Refine: Filters{FromDate: f.FromDate, ToDate: f.ToDate}}
	}
	if q := strings.TrimSpace(f.Description); q != "" {
		return SearchPlan{Kind: SearchSimilarity, Query: q, Refine: Filters{FromDate: f.FromDate, ToDate: f.ToDate}}
	}
	return SearchPlan{
		Kind: SearchList,
		List: storyapi.ListParams{
			Page:      1,
			PerPage:   perPage,
			FromDate:  f.FromDate,
			ToDate:    f.ToDate,
			ProjectID: f.ProjectID,
			SortOrder: f.SortOrder,
		},
	}
}
