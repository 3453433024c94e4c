package storyapi

import (
	"encoding/json"
	"io"
	"strings"
	"time"
)

type Story struct {
	ID                  string   `json:"id"`
	Description         string   `json:"description"`
	DocumentContent     *string  `json:"document_content,omitempty"`
	Title               string   `json:"title,omitempty"`
	Summary             string   `json:"summary,omitempty"`
	DocContentText      string   `json:"doc_content_text,omitempty"`
	CreatedOn           string   `json:"created_on,omitempty"`
	TestCaseCount       int      `json:"test_case_count"`
	EmbeddingTimestamp  *string  `json:"embedding_timestamp,omitempty"`
	TestCaseCreatedTime *string  `json:"test_case_created_time,omitempty"`
	ProjectID           string   `json:"project_id,omitempty"`
	SimilarityScore     *float64 `json:"similarity_score,omitempty"`
	DownloadLink        string   `json:"download_link,omitempty"`
}

// UnmarshalJSON accepts both test_case_count and the older num_test_cases.
func (s *Story) UnmarshalJSON(data []byte) error {
	type plain Story
	aux := struct {
		*plain
		NumTestCases *int `json:"num_test_cases"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.TestCaseCount == 0 && aux.NumTestCases != nil {
		s.TestCaseCount = *aux.NumTestCases
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the story service emits.
// Values without a zone are taken as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s Story) CreatedAt() (time.Time, bool) {
	return ParseTimestamp(s.CreatedOn)
}

type StoryPage struct {
	Stories        []Story `json:"stories"`
	TotalPages     int     `json:"total_pages"`
	CurrentPage    int     `json:"current_page"`
	TotalStories   int     `json:"total_stories"`
	LastReloadTime *string `json:"last_reload_time,omitempty"`
}

// Steps accepts either a JSON array of strings or a single newline-separated string.
type Steps []string

func (s *Steps) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*s = nil
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			*s = append(*s, line)
		}
	}
	return nil
}

type TestCase struct {
	ID              string    `json:"id,omitempty"`
	TestCaseID      string    `json:"test_case_id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Steps           Steps     `json:"steps,omitempty"`
	ExpectedResult  string    `json:"expected_result,omitempty"`
	ExpectedResults []string  `json:"expected_results,omitempty"`
	Priority        string    `json:"priority,omitempty"`
	Status          string    `json:"status,omitempty"`
	CreatedAt       string    `json:"created_at,omitempty"`
	UpdatedAt       string    `json:"updated_at,omitempty"`
	OriginalVersion *TestCase `json:"original_version,omitempty"`
}

// Identifier returns whichever id field the upstream populated.
func (tc TestCase) Identifier() string {
	if tc.ID != "" {
		return tc.ID
	}
	return tc.TestCaseID
}

// Expected returns the expected results as a list regardless of which field was used.
func (tc TestCase) Expected() []string {
	if len(tc.ExpectedResults) > 0 {
		return tc.ExpectedResults
	}
	if tc.ExpectedResult != "" {
		return []string{tc.ExpectedResult}
	}
	return nil
}

type TestCaseSet struct {
	StoryID          string     `json:"storyID"`
	StoryDescription *string    `json:"storyDescription"`
	ProjectID        string     `json:"project_id,omitempty"`
	TestCases        []TestCase `json:"testcases"`
}

// Impact is a raw impact-analysis record as produced by the story service.
type Impact struct {
	ImpactID                 string          `json:"impact_id,omitempty"`
	OriginalStoryID          string          `json:"original_story_id,omitempty"`
	NewStoryID               string          `json:"new_story_id,omitempty"`
	OriginalTestCaseID       string          `json:"original_test_case_id,omitempty"`
	ModifiedTestCaseID       string          `json:"modified_test_case_id,omitempty"`
	SimilarityScore          float64         `json:"similarity_score"`
	Title                    string          `json:"title,omitempty"`
	ImpactAnalysisJSON       json.RawMessage `json:"impact_analysis_json,omitempty"`
	ImpactedStoryDescription string          `json:"impacted_story_description,omitempty"`
	NewStoryDescription      string          `json:"new_story_description,omitempty"`
	ModifiedDate             string          `json:"modified_date,omitempty"`
}

type StoryImpacts struct {
	CausedImpacts   []Impact `json:"caused_impacts"`
	ReceivedImpacts []Impact `json:"received_impacts"`
}

// ImpactedTestCase is a test case whose expected behaviour may be affected by
// a changed story.
type ImpactedTestCase struct {
	ID                     string   `json:"id"`
	Title                  string   `json:"title"`
	Description            string   `json:"description"`
	OriginalStoryID        string   `json:"original_story_id"`
	NewStoryID             string   `json:"new_story_id"`
	OriginalTestCaseID     string   `json:"original_test_case_id"`
	ModifiedTestCaseID     string   `json:"modified_test_case_id"`
	SimilarityScore        float64  `json:"similarity_score"`
	Status                 string   `json:"status"`
	Priority               string   `json:"priority"`
	Severity               string   `json:"severity"`
	Steps                  []string `json:"steps"`
	ExpectedResult         string   `json:"expected_result"`
	OriginalTitle          string   `json:"original_title"`
	OriginalSteps          []string `json:"original_steps,omitempty"`
	OriginalExpectedResult string   `json:"original_expected_result,omitempty"`
	ModifiedDate           string   `json:"modified_date,omitempty"`
}

type RAGResult struct {
	TestCases json.RawMessage `json:"testCases"`
}

type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}
