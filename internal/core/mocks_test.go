package core

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gwi.com/testcase-dashboard/internal/storyapi"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Close() error {
	return m.Called().Error(0)
}

type mockRAGBackend struct {
	mock.Mock
}

func (m *mockRAGBackend) RAGChat(ctx context.Context, query string) (*storyapi.RAGResult, error) {
	args := m.Called(ctx, query)
	result, _ := args.Get(0).(*storyapi.RAGResult)
	return result, args.Error(1)
}
