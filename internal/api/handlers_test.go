package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/testcase-dashboard/internal/config"
	"gwi.com/testcase-dashboard/internal/core"
	"gwi.com/testcase-dashboard/internal/store"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

// newTestServer wires the full router against a fake story service. No LLM is
// configured, so the LLM path always answers from the mock template.
func newTestServer(t *testing.T, upstream http.Handler) *httptest.Server {
	t.Helper()
	if upstream == nil {
		upstream = http.NotFoundHandler()
	}
	fake := httptest.NewServer(upstream)
	t.Cleanup(fake.Close)

	stories, err := storyapi.NewClient(fake.URL+"/api/stories", 5*time.Second, nil)
	require.NoError(t, err)

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	generation := core.NewGenerationService(stories, nil, core.PersonaFor(config.PersonaQASupport), nil)
	chat := core.NewChatService(db, generation, nil)
	handler := NewAPIHandler(generation, chat, stories, nil)

	srv := httptest.NewServer(NewRouter(handler, nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestGenerateTestCases_NoKeyUsesMock(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/api/generate-test-cases", `{"message":"How should I test a login form?","model":"gemini"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out generateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out.Response, "QA Support")
	assert.Contains(t, out.Response, "How should I test a login form...")
	assert.NotEmpty(t, out.Error)
}

func TestGenerateTestCases_EchoIsTruncated(t *testing.T) {
	srv := newTestServer(t, nil)

	payload, err := json.Marshal(core.GenerateRequest{Message: strings.Repeat("x", 50)})
	require.NoError(t, err)
	resp, body := postJSON(t, srv.URL+"/api/generate-test-cases", string(payload))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out generateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out.Response, strings.Repeat("x", 30)+"...")
	assert.NotContains(t, out.Response, strings.Repeat("x", 31))
}

func TestGenerateTestCases_BadBodyStillAnswers(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/api/generate-test-cases", `{"message":`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out generateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out.Response, "QA Support")
	assert.Contains(t, out.Response, "## Question: Error occurred, using fallback...")
	assert.NotEmpty(t, out.Error)
}

func TestGenerateTestCases_RAGPassThrough(t *testing.T) {
	testCases := `[{"title":"Valid login","steps":["Open page","Submit"],"priority":"High"}]`
	var gotQuery atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stories/rag-chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotQuery.Store(req.Query)
		w.Write([]byte(`{"testCases":` + testCases + `}`))
	})
	srv := newTestServer(t, mux)

	resp, body := postJSON(t, srv.URL+"/api/generate-test-cases", `{"message":"Login story","model":"rag"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Login story", gotQuery.Load())
	assert.JSONEq(t, `{"testCases":`+testCases+`}`, string(body))
}

func TestGenerateTestCases_RAGFailures(t *testing.T) {
	var ragCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stories/rag-chat", func(w http.ResponseWriter, r *http.Request) {
		ragCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Vector store offline"}`))
	})
	srv := newTestServer(t, mux)

	resp, body := postJSON(t, srv.URL+"/api/generate-test-cases", `{"message":"Login story","model":"rag"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Vector store offline"}`, string(body))
	assert.NotContains(t, string(body), "QA Support")

	resp, body = postJSON(t, srv.URL+"/api/generate-test-cases", `{"message":"  ","model":"rag"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"message is required"}`, string(body))

	resp, body = postJSON(t, srv.URL+"/api/generate-test-cases", `{"message":42,"model":"rag"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid request body"}`, string(body))
	assert.NotContains(t, string(body), "QA Support")
	assert.Equal(t, int32(1), ragCalls.Load())
}

func TestChatSessionFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/api/chat/sessions", ``)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		ID       string          `json:"id"`
		Messages []store.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &session))
	require.NotEmpty(t, session.ID)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, core.ChatGreeting, session.Messages[0].Content)

	messagesURL := srv.URL + "/api/chat/sessions/" + session.ID + "/messages"
	resp, body = postJSON(t, messagesURL, `{"content":"What is smoke testing?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply core.ChatReply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, store.RoleAssistant, reply.Message.Role)
	assert.Contains(t, reply.Message.Content, "QA Support")
	assert.NotEmpty(t, reply.Error)

	resp, body = get(t, srv.URL+"/api/chat/sessions/"+session.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &session))
	require.Len(t, session.Messages, 3)
	assert.Equal(t, "What is smoke testing?", session.Messages[1].Content)

	resp, _ = postJSON(t, messagesURL, `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, messagesURL, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/chat/sessions/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/api/chat/sessions/does-not-exist/messages", `{"content":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatMessage_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/api/chat/sessions", ``)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &session))

	big := `{"content":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	resp, err := http.Post(srv.URL+"/api/chat/sessions/"+session.ID+"/messages", "application/json", bytes.NewBufferString(big))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
