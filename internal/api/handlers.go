package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/core"
	"gwi.com/testcase-dashboard/internal/metrics"
	"gwi.com/testcase-dashboard/internal/store"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

// StoryService is the story service API the dashboard reads from.
type StoryService interface {
	ListStories(ctx context.Context, params storyapi.ListParams) (*storyapi.StoryPage, error)
	SearchStories(ctx context.Context, query string, limit int) ([]storyapi.Story, error)
	GetStory(ctx context.Context, storyID string) (*storyapi.Story, error)
	GetTestCases(ctx context.Context, storyID string) (*storyapi.TestCaseSet, error)
	GetOriginalTestCase(ctx context.Context, storyID, testCaseID string) (*storyapi.TestCase, error)
	GetProjects(ctx context.Context) ([]string, error)
	GetStoryImpacts(ctx context.Context, storyID string) (*storyapi.StoryImpacts, error)
	GetImpactDetails(ctx context.Context, impactID string) (json.RawMessage, error)
	GetImpactSummary(ctx context.Context, projectID string) (json.RawMessage, error)
	DownloadTestCases(ctx context.Context, storyID string) (*storyapi.Download, error)
	NextReload(ctx context.Context) (json.RawMessage, error)
	TriggerReload(ctx context.Context) (json.RawMessage, error)
}

type APIHandler struct {
	generation *core.GenerationService
	chat       *core.ChatService
	stories    StoryService
	logger     *zap.Logger
}

func NewAPIHandler(generation *core.GenerationService, chat *core.ChatService, stories StoryService, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		generation: generation,
		chat:       chat,
		stories:    stories,
		logger:     logger.Named("APIHandler"),
	}
}

// decodeFailureQuestion stands in for the message when the body cannot be read.
const decodeFailureQuestion = "Error occurred, using fallback QA support"

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

type ragResponse struct {
	TestCases json.RawMessage `json:"testCases"`
}

// GenerateTestCasesHandler proxies a chat message to the RAG endpoint or the
// LLM. Only the RAG path can fail outward; everything else answers 200.
func (h *APIHandler) GenerateTestCasesHandler(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON[core.GenerateRequest](w, r)
	if err != nil {
		// A partially decoded body still says which path was asked for.
		if req.Model == core.ModeRAG {
			h.logger.Warn("Undecodable RAG generate request", zap.Error(err))
			metrics.ObserveGeneration(core.ModeRAG, metrics.OutcomeBadRequest, time.Now())
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		h.logger.Warn("Undecodable generate request, using mock response", zap.Error(err))
		metrics.ObserveGeneration(core.ModeLLM, metrics.OutcomeBadRequest, time.Now())
		fallback := h.generation.Fallback(decodeFailureQuestion)
		writeJSON(w, http.StatusOK, generateResponse{Response: fallback.Response, Error: fallback.Advisory})
		return
	}

	result, err := h.generation.Generate(r.Context(), req)
	if err != nil {
		var ragErr *core.RAGError
		switch {
		case errors.Is(err, core.ErrMessageRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &ragErr):
			writeError(w, http.StatusInternalServerError, ragErr.Message)
		default:
			h.logger.Error("Generation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to generate test cases")
		}
		return
	}

	if result.Mode == core.ModeRAG {
		writeJSON(w, http.StatusOK, ragResponse{TestCases: result.TestCases})
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Response: result.Response, Error: result.Advisory})
}

type chatSessionResponse struct {
	*store.Session
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) CreateChatSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, messages, err := h.chat.StartSession(r.Context())
	if err != nil {
		h.logger.Error("Error creating chat session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create chat session")
		return
	}
	writeJSON(w, http.StatusCreated, chatSessionResponse{Session: session, Messages: messages})
}

func (h *APIHandler) GetChatSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.chat.GetTranscript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chat session not found")
			return
		}
		h.logger.Error("Error getting chat session", zap.String("sessionID", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get chat session")
		return
	}
	writeJSON(w, http.StatusOK, chatSessionResponse{Session: session, Messages: messages})
}

type postMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

func (h *APIHandler) PostChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	req, err := readJSON[postMessageRequest](w, r)
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chat.PostMessage(r.Context(), sessionID, req.Content, req.Model)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMessageRequired):
			writeError(w, http.StatusBadRequest, "Message content cannot be empty")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Chat session not found")
		default:
			h.logger.Error("Error posting chat message", zap.String("sessionID", sessionID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to post message")
		}
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
