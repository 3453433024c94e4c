package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"gwi.com/testcase-dashboard/internal/config"
	"gwi.com/testcase-dashboard/internal/metrics"
)

var (
	// ErrNotConfigured is returned when the selected provider has no API key.
	ErrNotConfigured = errors.New("text generator is not configured")
	// ErrGenerationFailed wraps every provider failure, including empty answers.
	ErrGenerationFailed = errors.New("text generation failed")
)

// TextGenerator produces a single completion for a system prompt and a user prompt.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
	Close() error
}

// NewTextGenerator builds the generator for cfg.LLMProvider. It returns
// ErrNotConfigured when no API key is available so callers can switch to mock mode.
func NewTextGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (TextGenerator, error) {
	apiKey := cfg.LLMAPIKey()
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("TextGenerator").With(zap.String("provider", cfg.LLMProvider), zap.String("model", cfg.LLMModel))

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		openaiConfig := openaigo.DefaultConfig(apiKey)
		if cfg.LLMBaseURL != "" {
			openaiConfig.BaseURL = cfg.LLMBaseURL
		}
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.LLMTimeout}
		logger.Info("OpenAI client created", zap.String("baseURL", openaiConfig.BaseURL))
		return &openAIGenerator{
			client:    openaigo.NewClientWithConfig(openaiConfig),
			model:     cfg.LLMModel,
			maxTokens: cfg.LLMMaxTokens,
			logger:    logger,
		}, nil

	case config.ProviderOllama:
		baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.LLMBaseURL, "/"), "/v1")
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Ollama base URL %q: %w", baseURL, err)
		}
		logger.Info("Ollama client created", zap.String("baseURL", baseURL))
		return &ollamaGenerator{
			client:    api.NewClient(parsed, &http.Client{Timeout: cfg.LLMTimeout}),
			model:     cfg.LLMModel,
			maxTokens: cfg.LLMMaxTokens,
			logger:    logger,
		}, nil

	default:
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		logger.Info("GenAI client created")
		return &geminiGenerator{
			client:    client,
			model:     cfg.LLMModel,
			maxTokens: int32(cfg.LLMMaxTokens),
			timeout:   cfg.LLMTimeout,
			logger:    logger,
		}, nil
	}
}

type geminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
	logger    *zap.Logger
}

func (g *geminiGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	maxTokens := g.maxTokens
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
	}

	started := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		metrics.ObserveLLM(config.ProviderGemini, g.model, "error")
		g.logger.Warn("Gemini request failed", zap.Duration("duration", time.Since(started)), zap.Error(err))
		return "", fmt.Errorf("%w: gemini GenerateContent: %v", ErrGenerationFailed, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		metrics.ObserveLLM(config.ProviderGemini, g.model, "error_empty_response")
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrGenerationFailed)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			g.logger.Debug("Skipping non-text response part", zap.String("type", fmt.Sprintf("%T", part)))
		}
	}
	if text.Len() == 0 {
		metrics.ObserveLLM(config.ProviderGemini, g.model, "error_empty_response")
		return "", fmt.Errorf("%w: gemini returned an empty or non-text response", ErrGenerationFailed)
	}

	metrics.ObserveLLM(config.ProviderGemini, g.model, "success")
	g.logger.Debug("Gemini response received", zap.Duration("duration", time.Since(started)), zap.Int("length", text.Len()))
	return text.String(), nil
}

func (g *geminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("failed to close GenAI client: %w", err)
	}
	g.logger.Info("GenAI client closed.")
	return nil
}

type openAIGenerator struct {
	client    *openaigo.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func (g *openAIGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	started := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: g.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		metrics.ObserveLLM(config.ProviderOpenAI, g.model, "error")
		g.logger.Warn("OpenAI request failed", zap.Duration("duration", time.Since(started)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.ObserveLLM(config.ProviderOpenAI, g.model, "error_empty_response")
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	metrics.ObserveLLM(config.ProviderOpenAI, g.model, "success")
	g.logger.Debug("OpenAI response received",
		zap.Duration("duration", time.Since(started)),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

func (g *openAIGenerator) Close() error { return nil }

type ollamaGenerator struct {
	client    *api.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func (g *ollamaGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"num_predict": g.maxTokens,
		},
	}

	started := time.Now()
	var resp api.ChatResponse
	err := g.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		metrics.ObserveLLM(config.ProviderOllama, g.model, "error")
		g.logger.Warn("Ollama request failed", zap.Duration("duration", time.Since(started)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		metrics.ObserveLLM(config.ProviderOllama, g.model, "error_empty_response")
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	metrics.ObserveLLM(config.ProviderOllama, g.model, "success")
	g.logger.Debug("Ollama response received",
		zap.Duration("duration", time.Since(started)),
		zap.Int("promptTokens", resp.PromptEvalCount),
		zap.Int("completionTokens", resp.EvalCount))
	return resp.Message.Content, nil
}

func (g *ollamaGenerator) Close() error { return nil }
