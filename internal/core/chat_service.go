package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/store"
)

const (
	ChatGreeting = "Hello! I can help you generate test cases. Describe a feature or user story, and I'll create comprehensive test cases for you."

	ragFailureReply = "I'm sorry, I couldn't generate test cases from the story service right now. Please try again."
)

// ChatStore persists chat transcripts.
type ChatStore interface {
	CreateSession(ctx context.Context, title *string) (*store.Session, error)
	GetSession(ctx context.Context, sessionID string) (*store.Session, error)
	AppendMessage(ctx context.Context, msg *store.Message) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error)
	UpdateSessionTitle(ctx context.Context, sessionID, title string) error
}

// ChatReply is the assistant's answer to a posted message.
type ChatReply struct {
	Message store.Message `json:"message"`
	// Error is the advisory or failure text the UI shows next to the reply.
	Error string `json:"error,omitempty"`
}

type ChatService struct {
	store      ChatStore
	generation *GenerationService
	logger     *zap.Logger
}

func NewChatService(chatStore ChatStore, generation *GenerationService, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		store:      chatStore,
		generation: generation,
		logger:     logger.Named("ChatService"),
	}
}

// StartSession creates a session whose transcript begins with the greeting.
func (s *ChatService) StartSession(ctx context.Context) (*store.Session, []store.Message, error) {
	session, err := s.store.CreateSession(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	greeting := store.Message{SessionID: session.ID, Role: store.RoleAssistant, Content: ChatGreeting}
	if err := s.store.AppendMessage(ctx, &greeting); err != nil {
		return nil, nil, fmt.Errorf("failed to store greeting: %w", err)
	}
	return session, []store.Message{greeting}, nil
}

func (s *ChatService) GetTranscript(ctx context.Context, sessionID string) (*store.Session, []store.Message, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for chat session: %w", err)
	}
	return session, messages, nil
}

// PostMessage stores the user's message, runs it through the generation proxy
// and stores the assistant's reply. Generation failures become an assistant
// message with Error set rather than an error return.
func (s *ChatService) PostMessage(ctx context.Context, sessionID, content, model string) (*ChatReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrMessageRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := store.Message{SessionID: sessionID, Role: store.RoleUser, Content: content}
	if err := s.store.AppendMessage(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	if session.Title == nil || *session.Title == "" {
		if err := s.store.UpdateSessionTitle(ctx, sessionID, TruncateSnippet(content)); err != nil {
			s.logger.Warn("Failed to set chat session title", zap.String("sessionID", sessionID), zap.Error(err))
		}
	}

	reply := store.Message{SessionID: sessionID, Role: store.RoleAssistant}
	var replyErr string

	result, err := s.generation.Generate(ctx, GenerateRequest{Message: content, Context: DefaultChatContext, Model: model})
	var ragErr *RAGError
	switch {
	case err == nil && result.Mode == ModeRAG:
		reply.Mode = ModeRAG
		reply.Content = FormatTestCases(result.TestCases)
	case err == nil:
		reply.Mode = ModeLLM
		reply.Content = result.Response
		replyErr = result.Advisory
	case errors.As(err, &ragErr):
		reply.Mode = ModeRAG
		reply.Content = ragFailureReply
		replyErr = ragErr.Message
	default:
		return nil, err
	}

	if replyErr != "" {
		reply.Advisory = &replyErr
	}
	if err := s.store.AppendMessage(ctx, &reply); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	return &ChatReply{Message: reply, Error: replyErr}, nil
}
