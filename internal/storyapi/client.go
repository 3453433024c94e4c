package storyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/metrics"
)

// Op names one story service call; it labels metrics and error messages.
type Op string

const (
	OpListStories   Op = "list_stories"
	OpSearchStories Op = "search_stories"
	OpGetStory      Op = "get_story"
	OpGetTestCases  Op = "get_test_cases"
	OpGetTestCase   Op = "get_test_case"
	OpGetProjects   Op = "get_projects"
	OpGetImpacts    Op = "get_story_impacts"
	OpImpactDetails Op = "get_impact_details"
	OpImpactSummary Op = "get_impact_summary"
	OpDownload      Op = "download_test_cases"
	OpNextReload    Op = "next_reload"
	OpTriggerReload Op = "trigger_reload"
	OpRAGChat       Op = "rag_chat"
)

const (
	defaultSearchSize = 3
	defaultPerPage    = 10
)

var opDescriptions = map[Op]string{
	OpListStories:   "fetch stories",
	OpSearchStories: "search stories",
	OpGetStory:      "fetch story",
	OpGetTestCases:  "fetch test cases",
	OpGetTestCase:   "fetch original test case",
	OpGetProjects:   "fetch projects",
	OpGetImpacts:    "fetch impact analysis",
	OpImpactDetails: "fetch impact details",
	OpImpactSummary: "fetch impact summary",
	OpDownload:      "download test cases",
	OpNextReload:    "fetch next reload time",
	OpTriggerReload: "trigger reload",
	OpRAGChat:       "generate RAG test cases",
}

func (o Op) describe() string {
	if d, ok := opDescriptions[o]; ok {
		return d
	}
	return string(o)
}

// Client talks to the external test-generation service. It does not retry,
// cache or deduplicate requests.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	parsed, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL for story service: %w", err)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("StoryAPIClient"),
	}, nil
}

// ListParams filters and paginates ListStories. Dates are passed through as
// typed by the user (YYYY-MM-DD).
type ListParams struct {
	Page      int
	PerPage   int
	FromDate  string
	ToDate    string
	ProjectID string
	SortOrder string // "asc" or "desc"
}

func (p ListParams) query() url.Values {
	page := p.Page
	if page < 1 {
		page = 1
	}
	perPage := p.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	sortOrder := "desc"
	if strings.EqualFold(p.SortOrder, "asc") {
		sortOrder = "asc"
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort_order", sortOrder)
	if p.FromDate != "" {
		q.Set("from_date", p.FromDate)
	}
	if p.ToDate != "" {
		q.Set("to_date", p.ToDate)
	}
	if p.ProjectID != "" {
		q.Set("project_id", p.ProjectID)
	}
	return q
}

func (c *Client) ListStories(ctx context.Context, params ListParams) (*StoryPage, error) {
	var page StoryPage
	raw, err := c.doJSON(ctx, OpListStories, http.MethodGet, []string{""}, params.query(), nil)
	if err != nil {
		return nil, err
	}
	if err := decodeStrict(OpListStories, raw, &page); err != nil {
		return nil, err
	}
	if page.Stories == nil {
		if !hasField(raw, "stories") {
			return nil, &ValidationError{Op: OpListStories, Field: "stories", Reason: "is missing"}
		}
		page.Stories = []Story{}
	}
	for i, s := range page.Stories {
		if s.ID == "" {
			return nil, &ValidationError{Op: OpListStories, Field: fmt.Sprintf("stories[%d].id", i), Reason: "is empty"}
		}
	}
	if page.CurrentPage < 1 {
		page.CurrentPage = 1
	}
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return &page, nil
}

func (c *Client) SearchStories(ctx context.Context, query string, limit int) ([]Story, error) {
	if limit < 1 {
		limit = defaultSearchSize
	}
	body := map[string]any{"query": query, "limit": limit}
	raw, err := c.doJSON(ctx, OpSearchStories, http.MethodPost, []string{"search"}, nil, body)
	if err != nil {
		return nil, err
	}
	var result struct {
		Stories []Story `json:"stories"`
	}
	if err := decodeStrict(OpSearchStories, raw, &result); err != nil {
		return nil, err
	}
	for i, s := range result.Stories {
		if s.ID == "" {
			return nil, &ValidationError{Op: OpSearchStories, Field: fmt.Sprintf("stories[%d].id", i), Reason: "is empty"}
		}
	}
	if result.Stories == nil {
		result.Stories = []Story{}
	}
	return result.Stories, nil
}

func (c *Client) GetStory(ctx context.Context, storyID string) (*Story, error) {
	raw, err := c.doJSON(ctx, OpGetStory, http.MethodGet, []string{storyID}, nil, nil)
	if err != nil {
		return nil, err
	}
	var story Story
	if err := decodeStrict(OpGetStory, raw, &story); err != nil {
		return nil, err
	}
	if story.ID == "" {
		return nil, &ValidationError{Op: OpGetStory, Field: "id", Reason: "is empty"}
	}
	return &story, nil
}

func (c *Client) GetTestCases(ctx context.Context, storyID string) (*TestCaseSet, error) {
	raw, err := c.doJSON(ctx, OpGetTestCases, http.MethodGet, []string{storyID, "testcases"}, nil, nil)
	if err != nil {
		return nil, err
	}
	var set TestCaseSet
	if err := decodeStrict(OpGetTestCases, raw, &set); err != nil {
		return nil, err
	}
	if set.StoryID == "" {
		return nil, &ValidationError{Op: OpGetTestCases, Field: "storyID", Reason: "is empty"}
	}
	if set.TestCases == nil {
		set.TestCases = []TestCase{}
	}
	return &set, nil
}

func (c *Client) GetOriginalTestCase(ctx context.Context, storyID, testCaseID string) (*TestCase, error) {
	raw, err := c.doJSON(ctx, OpGetTestCase, http.MethodGet, []string{storyID, "test-cases", testCaseID}, nil, nil)
	if err != nil {
		return nil, err
	}
	var tc TestCase
	if err := decodeStrict(OpGetTestCase, raw, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

func (c *Client) GetProjects(ctx context.Context) ([]string, error) {
	raw, err := c.doJSON(ctx, OpGetProjects, http.MethodGet, []string{"projects"}, nil, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Projects []string `json:"projects"`
	}
	if err := decodeStrict(OpGetProjects, raw, &result); err != nil {
		return nil, err
	}
	if result.Projects == nil {
		if !hasField(raw, "projects") {
			return nil, &ValidationError{Op: OpGetProjects, Field: "projects", Reason: "is missing"}
		}
		result.Projects = []string{}
	}
	return result.Projects, nil
}

func (c *Client) GetStoryImpacts(ctx context.Context, storyID string) (*StoryImpacts, error) {
	raw, err := c.doJSON(ctx, OpGetImpacts, http.MethodGet, []string{"impacts", "story", storyID}, nil, nil)
	if err != nil {
		return nil, err
	}
	var impacts StoryImpacts
	if err := decodeStrict(OpGetImpacts, raw, &impacts); err != nil {
		return nil, err
	}
	return &impacts, nil
}

func (c *Client) GetImpactDetails(ctx context.Context, impactID string) (json.RawMessage, error) {
	return c.doOpaque(ctx, OpImpactDetails, http.MethodGet, []string{"impacts", "details", impactID})
}

func (c *Client) GetImpactSummary(ctx context.Context, projectID string) (json.RawMessage, error) {
	return c.doOpaque(ctx, OpImpactSummary, http.MethodGet, []string{"impacts", "summary", projectID})
}

func (c *Client) NextReload(ctx context.Context) (json.RawMessage, error) {
	return c.doOpaque(ctx, OpNextReload, http.MethodGet, []string{"next-reload"})
}

func (c *Client) TriggerReload(ctx context.Context) (json.RawMessage, error) {
	return c.doOpaque(ctx, OpTriggerReload, http.MethodPost, []string{"trigger-reload"})
}

// RAGChat asks the story service to generate test cases for query. The
// returned test cases are passed through without shape validation.
func (c *Client) RAGChat(ctx context.Context, query string) (*RAGResult, error) {
	raw, err := c.doJSON(ctx, OpRAGChat, http.MethodPost, []string{"rag-chat"}, nil, map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	var result RAGResult
	if err := decodeStrict(OpRAGChat, raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadTestCases streams the spreadsheet for storyID. The caller must close Body.
func (c *Client) DownloadTestCases(ctx context.Context, storyID string) (*Download, error) {
	resp, err := c.send(ctx, OpDownload, http.MethodGet, []string{"testcases", "download", storyID}, nil, nil)
	if err != nil {
		return nil, err
	}

	filename := "test_cases_" + storyID + ".xlsx"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	return &Download{Filename: filename, ContentType: contentType, Body: resp.Body}, nil
}

func (c *Client) doOpaque(ctx context.Context, op Op, method string, segments []string) (json.RawMessage, error) {
	raw, err := c.doJSON(ctx, op, method, segments, nil, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, &ValidationError{Op: op, Field: "body", Reason: "is not valid JSON"}
	}
	return json.RawMessage(raw), nil
}

func (c *Client) doJSON(ctx context.Context, op Op, method string, segments []string, query url.Values, body any) ([]byte, error) {
	resp, err := c.send(ctx, op, method, segments, query, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", ErrUpstream, op, err)
	}
	return raw, nil
}

// send performs the request and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, op Op, method string, segments []string, query url.Values, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	endpoint := c.endpoint(segments, query)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending request to story service", zap.String("op", string(op)), zap.String("method", method), zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(string(op), "error")
		c.logger.Warn("Story service unreachable", zap.String("op", string(op)), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, op.describe(), err)
	}
	metrics.ObserveUpstream(string(op), strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode, Message: upstreamErrorMessage(resp.Body)}
		c.logger.Warn("Story service returned non-2xx status",
			zap.String("op", string(op)),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("upstreamError", statusErr.Message))
		return nil, statusErr
	}
	return resp, nil
}

func (c *Client) endpoint(segments []string, query url.Values) string {
	u := *c.baseURL
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = c.baseURL.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func upstreamErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		return payload.Error
	}
	return ""
}

func decodeStrict(op Op, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{Op: op, Field: typeErr.Field, Reason: "has type " + typeErr.Value}
		}
		return &ValidationError{Op: op, Field: "body", Reason: "is not valid JSON"}
	}
	return nil
}

func hasField(raw []byte, field string) bool {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return false
	}
	_, ok := fields[field]
	return ok
}
