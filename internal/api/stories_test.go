package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

func fakeStoryService() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stories/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stories":[{"id":"US-1","description":"User can log in","created_on":"2024-05-01T08:00:00","test_case_count":3}],"total_pages":2,"current_page":1,"total_stories":11}`))
	})
	mux.HandleFunc("POST /api/stories/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stories":[
			{"id":"US-1","description":"User can log in","created_on":"2024-05-01T08:00:00","similarity_score":0.91},
			{"id":"US-5","description":"Login audit log","created_on":"2023-01-10T08:00:00","similarity_score":0.72}
		]}`))
	})
	mux.HandleFunc("GET /api/stories/projects", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projects":["Alpha","Beta"]}`))
	})
	mux.HandleFunc("GET /api/stories/US-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"US-1","description":"User can log in","created_on":"2024-05-01T08:00:00","test_case_count":3}`))
	})
	mux.HandleFunc("GET /api/stories/US-404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Story not found: US-404"}`))
	})
	mux.HandleFunc("GET /api/stories/US-500", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database is locked"}`))
	})
	mux.HandleFunc("GET /api/stories/US-BAD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"description":"no id"}`))
	})
	mux.HandleFunc("GET /api/stories/US-1/testcases", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"storyID":"US-1","storyDescription":"User can log in","testcases":[{"id":"TC-1","title":"Valid login","steps":"Open page\nSubmit","expected_result":"Dashboard shown"}]}`))
	})
	mux.HandleFunc("GET /api/stories/impacts/story/US-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"caused_impacts":[{"impact_id":"I-1","original_test_case_id":"TC-4","impact_analysis_json":"{\"severity\":\"high\",\"modified_test_case\":{\"title\":\"Login with SSO\"}}"}],"received_impacts":[]}`))
	})
	mux.HandleFunc("GET /api/stories/testcases/download/US-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="US-1_cases.xlsx"`)
		w.Write([]byte("PK-spreadsheet"))
	})
	mux.HandleFunc("GET /api/stories/next-reload", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"next_reload":"2024-05-02T00:00:00"}`))
	})
	mux.HandleFunc("POST /api/stories/trigger-reload", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"reload started"}`))
	})
	return mux
}

func TestListStories_Passthrough(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	resp, body := get(t, srv.URL+"/api/stories?page=1&sort_order=desc")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page storyapi.StoryPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Stories, 1)
	assert.Equal(t, 3, page.Stories[0].TestCaseCount)
}

func TestListStories_DescriptionUsesSimilarityAndDates(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	q := url.Values{"description": {"login"}, "from_date": {"2024-01-01"}}
	resp, body := get(t, srv.URL+"/api/stories?"+q.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page storyapi.StoryPage
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Stories, 1)
	assert.Equal(t, "US-1", page.Stories[0].ID)
	assert.Equal(t, 1, page.TotalPages)
}

func TestListStories_IDLookup(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	resp, body := get(t, srv.URL+"/api/stories?story_id=US-404")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page storyapi.StoryPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Empty(t, page.Stories)

	resp, body = get(t, srv.URL+"/api/stories?story_id=US-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Stories, 1)
}

func TestGetStory_ErrorMapping(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	tests := []struct {
		name   string
		path   string
		status int
		errMsg string
	}{
		{"found", "/api/stories/US-1", http.StatusOK, ""},
		{"not found", "/api/stories/US-404", http.StatusNotFound, "Story not found: US-404"},
		{"upstream error", "/api/stories/US-500", http.StatusBadGateway, "database is locked"},
		{"invalid payload", "/api/stories/US-BAD", http.StatusBadGateway, "id is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.errMsg == "" {
				return
			}
			var out errorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Contains(t, out.Error, tt.errMsg)
		})
	}
}

func TestStoryServiceUnreachable(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			conn.Close()
		}
	}))

	resp, _ := get(t, srv.URL+"/api/stories/projects")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSearchStories(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	resp, body := postJSON(t, srv.URL+"/api/stories/search", `{"query":"login"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Stories []storyapi.Story `json:"stories"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Stories, 2)
	require.NotNil(t, out.Stories[0].SimilarityScore)
	assert.InDelta(t, 0.91, *out.Stories[0].SimilarityScore, 1e-9)

	resp, _ = postJSON(t, srv.URL+"/api/stories/search", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProjectsAndTestCases(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	_, body := get(t, srv.URL+"/api/stories/projects")
	assert.JSONEq(t, `{"projects":["Alpha","Beta"]}`, string(body))

	resp, body := get(t, srv.URL+"/api/stories/US-1/testcases")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var set storyapi.TestCaseSet
	require.NoError(t, json.Unmarshal(body, &set))
	require.Len(t, set.TestCases, 1)
	assert.Equal(t, storyapi.Steps{"Open page", "Submit"}, set.TestCases[0].Steps)
}

func TestImpacts_Normalized(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	resp, body := get(t, srv.URL+"/api/stories/US-1/impacts")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out impactsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "US-1", out.StoryID)
	require.Len(t, out.ImpactedTestCases, 1)
	impacted := out.ImpactedTestCases[0]
	assert.Equal(t, "TC-4-MOD", impacted.ID)
	assert.Equal(t, "Login with SSO", impacted.Title)
	assert.Equal(t, "high", impacted.Severity)
	assert.Equal(t, "medium", impacted.Priority)
	assert.Equal(t, "active", impacted.Status)
}

func TestDownload_Streams(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	resp, err := http.Get(srv.URL + "/api/stories/US-1/download")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename=US-1_cases.xlsx`, resp.Header.Get("Content-Disposition"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK-spreadsheet", string(data))
}

func TestReload(t *testing.T) {
	srv := newTestServer(t, fakeStoryService())

	_, body := get(t, srv.URL+"/api/reload")
	assert.JSONEq(t, `{"next_reload":"2024-05-02T00:00:00"}`, string(body))

	resp, body := postJSON(t, srv.URL+"/api/reload", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"reload started"}`, string(body))
}
