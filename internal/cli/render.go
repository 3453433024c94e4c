package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

var (
	headerColor  = lipgloss.Color("#F780FF") // Bright pink
	idColor      = lipgloss.Color("#8BE9FD") // Cyan
	textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
	mutedColor   = lipgloss.Color("#6272A4") // Muted purple
	errorColor   = lipgloss.Color("#FF5555") // Red
	successColor = lipgloss.Color("#50FA7B") // Green
	warnColor    = lipgloss.Color("#FFB86C") // Orange

	headerStyle  = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	idStyle      = lipgloss.NewStyle().Foreground(idColor).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(textColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor)
	cardStyle    = lipgloss.NewStyle().PaddingLeft(2)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderStories(w io.Writer, stories []storyapi.Story) {
	if len(stories) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No stories found."))
		return
	}
	for _, s := range stories {
		line := idStyle.Render(s.ID) + "  " + textStyle.Render(oneLine(s.Description))
		if s.SimilarityScore != nil {
			line += "  " + successStyle.Render(fmt.Sprintf("%.1f%% match", *s.SimilarityScore*100))
		}
		fmt.Fprintln(w, line)

		var meta []string
		if s.CreatedOn != "" {
			meta = append(meta, "created "+s.CreatedOn)
		}
		if s.ProjectID != "" {
			meta = append(meta, "project "+s.ProjectID)
		}
		meta = append(meta, fmt.Sprintf("%d test cases", s.TestCaseCount))
		fmt.Fprintln(w, cardStyle.Render(mutedStyle.Render(strings.Join(meta, " · "))))
	}
}

func renderStory(w io.Writer, s *storyapi.Story) {
	fmt.Fprintln(w, headerStyle.Render("Story "+s.ID))
	if s.Title != "" {
		fmt.Fprintln(w, textStyle.Render(s.Title))
	}
	fmt.Fprintln(w, textStyle.Render(s.Description))
	if s.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cardStyle.Render(mutedStyle.Render(s.Summary)))
	}
	fmt.Fprintln(w)
	renderStories(w, []storyapi.Story{*s})
}

func renderTestCases(w io.Writer, set *storyapi.TestCaseSet) {
	fmt.Fprintln(w, headerStyle.Render("Test cases for "+set.StoryID))
	if set.StoryDescription != nil {
		fmt.Fprintln(w, mutedStyle.Render(*set.StoryDescription))
	}
	fmt.Fprintln(w)
	if len(set.TestCases) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No test cases have been generated for this story yet."))
		return
	}
	for _, tc := range set.TestCases {
		title := idStyle.Render(tc.Identifier()) + "  " + textStyle.Render(tc.Title)
		if tc.Priority != "" {
			title += "  " + warnStyle.Render("["+tc.Priority+"]")
		}
		fmt.Fprintln(w, title)
		for i, step := range tc.Steps {
			fmt.Fprintln(w, cardStyle.Render(fmt.Sprintf("%d. %s", i+1, step)))
		}
		for _, exp := range tc.Expected() {
			fmt.Fprintln(w, cardStyle.Render(successStyle.Render("→ "+exp)))
		}
		fmt.Fprintln(w)
	}
}

func renderImpacts(w io.Writer, storyID string, impacts []storyapi.ImpactedTestCase) {
	fmt.Fprintln(w, headerStyle.Render("Impacted test cases for "+storyID))
	fmt.Fprintln(w)
	if len(impacts) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No impacted test cases."))
		return
	}
	for _, it := range impacts {
		fmt.Fprintln(w, idStyle.Render(it.ID)+"  "+textStyle.Render(it.Title))
		fmt.Fprintln(w, cardStyle.Render(mutedStyle.Render(fmt.Sprintf(
			"priority %s · severity %s · %.1f%% similar · %s → %s",
			it.Priority, it.Severity, it.SimilarityScore*100, it.OriginalStoryID, it.NewStoryID))))
		for i, step := range it.Steps {
			fmt.Fprintln(w, cardStyle.Render(fmt.Sprintf("%d. %s", i+1, step)))
		}
		if it.ExpectedResult != "" {
			fmt.Fprintln(w, cardStyle.Render(successStyle.Render("→ "+it.ExpectedResult)))
		}
		fmt.Fprintln(w)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
