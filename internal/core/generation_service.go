package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/metrics"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

const (
	ModeRAG = "rag"
	ModeLLM = "llm"

	defaultRAGError = "RAG backend error"
)

// ErrMessageRequired is returned for RAG requests without a message.
var ErrMessageRequired = errors.New("message is required")

// RAGBackend is the part of the story service the proxy forwards to.
type RAGBackend interface {
	RAGChat(ctx context.Context, query string) (*storyapi.RAGResult, error)
}

type GenerateRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
	Model   string `json:"model"`
}

// GenerateResult is the successful outcome of a proxy call. Exactly one of
// Response and TestCases is meaningful, depending on Mode.
type GenerateResult struct {
	Mode      string
	Response  string
	TestCases json.RawMessage
	// Advisory is set when Response holds mock content.
	Advisory string
}

// Mocked reports whether the result is offline fallback content.
func (r *GenerateResult) Mocked() bool {
	return r.Advisory != ""
}

// RAGError is a failed RAG call. Message is what the caller may show.
type RAGError struct {
	Message string
	Err     error
}

func (e *RAGError) Error() string { return e.Message }
func (e *RAGError) Unwrap() error { return e.Err }

// GenerationService routes a chat message either to the upstream RAG endpoint
// or to an LLM, falling back to deterministic mock content when the LLM path
// cannot answer.
type GenerationService struct {
	rag       RAGBackend
	generator TextGenerator
	persona   Persona
	logger    *zap.Logger
}

// NewGenerationService wires the proxy. generator may be nil, in which case
// every LLM request is answered from the persona's mock template.
func NewGenerationService(rag RAGBackend, generator TextGenerator, persona Persona, logger *zap.Logger) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		rag:       rag,
		generator: generator,
		persona:   persona,
		logger:    logger.Named("GenerationService"),
	}
}

func (s *GenerationService) Persona() Persona {
	return s.persona
}

// Generate never fails on the LLM path. On the RAG path it returns
// ErrMessageRequired or a *RAGError.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.Model == ModeRAG {
		return s.generateRAG(ctx, req.Message)
	}
	return s.generateLLM(ctx, req), nil
}

func (s *GenerationService) generateRAG(ctx context.Context, message string) (*GenerateResult, error) {
	started := time.Now()
	if strings.TrimSpace(message) == "" {
		metrics.ObserveGeneration(ModeRAG, metrics.OutcomeBadRequest, started)
		return nil, ErrMessageRequired
	}

	result, err := s.rag.RAGChat(ctx, message)
	if err != nil {
		metrics.ObserveGeneration(ModeRAG, metrics.OutcomeUpstreamError, started)
		s.logger.Warn("RAG request failed", zap.Error(err))

		var statusErr *storyapi.StatusError
		if errors.As(err, &statusErr) {
			msg := statusErr.Message
			if msg == "" {
				msg = defaultRAGError
			}
			return nil, &RAGError{Message: msg, Err: err}
		}
		return nil, &RAGError{Message: fmt.Sprintf("RAG backend unavailable: %v", err), Err: err}
	}

	testCases := result.TestCases
	if len(testCases) == 0 {
		testCases = json.RawMessage("null")
	}
	metrics.ObserveGeneration(ModeRAG, metrics.OutcomeSuccess, started)
	return &GenerateResult{Mode: ModeRAG, TestCases: testCases}, nil
}

func (s *GenerationService) generateLLM(ctx context.Context, req GenerateRequest) *GenerateResult {
	started := time.Now()

	switch {
	case strings.TrimSpace(req.Message) == "":
		s.logger.Info("Empty message, using mock response")
	case s.generator == nil:
		s.logger.Info("API key not found, using mock response", zap.String("persona", s.persona.Name))
	default:
		text, err := s.generator.Generate(ctx, s.persona.SystemPrompt, s.persona.Prompt(req.Message, req.Context))
		if err == nil {
			metrics.ObserveGeneration(ModeLLM, metrics.OutcomeSuccess, started)
			return &GenerateResult{Mode: ModeLLM, Response: text}
		}
		s.logger.Error("Text generation failed, using mock response", zap.Error(err))
	}

	metrics.ObserveGeneration(ModeLLM, metrics.OutcomeMock, started)
	return s.Fallback(req.Message)
}

// Fallback returns the persona's mock answer for message together with the
// advisory text. It is also used when a request body cannot be decoded.
func (s *GenerationService) Fallback(message string) *GenerateResult {
	return &GenerateResult{
		Mode:     ModeLLM,
		Response: s.persona.Mock(message),
		Advisory: s.persona.Advisory,
	}
}
