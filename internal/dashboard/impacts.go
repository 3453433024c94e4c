package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

type impactAnalysis struct {
	Title              string `json:"title"`
	Severity           string `json:"severity"`
	OriginalTestCaseID string `json:"original_test_case_id"`
	ModifiedTestCase   struct {
		ID             string         `json:"id"`
		Title          string         `json:"title"`
		Steps          storyapi.Steps `json:"steps"`
		ExpectedResult string         `json:"expected_result"`
		Priority       string         `json:"priority"`
		Severity       string         `json:"severity"`
	} `json:"modified_test_case"`
}

// NormalizeImpacts flattens caused and received impacts (in that order) into
// impacted test cases. An impact whose analysis cannot be parsed is still
// returned with defaults; the parse error is reported in the second result.
func NormalizeImpacts(impacts storyapi.StoryImpacts) ([]storyapi.ImpactedTestCase, []error) {
	all := make([]storyapi.Impact, 0, len(impacts.CausedImpacts)+len(impacts.ReceivedImpacts))
	all = append(all, impacts.CausedImpacts...)
	all = append(all, impacts.ReceivedImpacts...)

	result := make([]storyapi.ImpactedTestCase, 0, len(all))
	var errs []error
	for _, impact := range all {
		analysis, err := parseImpactAnalysis(impact.ImpactAnalysisJSON)
		if err != nil {
			errs = append(errs, fmt.Errorf("impact %s: %w", impact.ImpactID, err))
		}
		result = append(result, normalizeImpact(impact, analysis))
	}
	return result, errs
}

func parseImpactAnalysis(raw json.RawMessage) (impactAnalysis, error) {
	var analysis impactAnalysis
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return analysis, nil
	}

	data := []byte(trimmed)
	var encoded string
	if json.Unmarshal(data, &encoded) == nil {
		if strings.TrimSpace(encoded) == "" {
			return analysis, nil
		}
		data = []byte(encoded)
	}
	if err := json.Unmarshal(data, &analysis); err != nil {
		return impactAnalysis{}, fmt.Errorf("failed to parse impact analysis: %w", err)
	}
	return analysis, nil
}

func normalizeImpact(impact storyapi.Impact, analysis impactAnalysis) storyapi.ImpactedTestCase {
	modified := analysis.ModifiedTestCase

	derivedID := ""
	if impact.OriginalTestCaseID != "" {
		derivedID = impact.OriginalTestCaseID + "-MOD"
	}

	steps := []string(modified.Steps)
	if steps == nil {
		steps = []string{}
	}

	return storyapi.ImpactedTestCase{
		ID:                 firstNonEmpty(impact.ModifiedTestCaseID, derivedID, impact.ImpactID),
		Title:              firstNonEmpty(modified.Title, analysis.Title, impact.Title, "Modified Test Case"),
		Description:        firstNonEmpty(impact.ImpactedStoryDescription, impact.NewStoryDescription),
		OriginalStoryID:    impact.OriginalStoryID,
		NewStoryID:         impact.NewStoryID,
		OriginalTestCaseID: firstNonEmpty(impact.OriginalTestCaseID, analysis.OriginalTestCaseID),
		ModifiedTestCaseID: firstNonEmpty(impact.ModifiedTestCaseID, modified.ID, derivedID),
		SimilarityScore:    impact.SimilarityScore,
		Status:             "active",
		Priority:           firstNonEmpty(modified.Priority, "medium"),
		Severity:           firstNonEmpty(modified.Severity, analysis.Severity, "medium"),
		Steps:              steps,
		ExpectedResult:     modified.ExpectedResult,
		ModifiedDate:       impact.ModifiedDate,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
