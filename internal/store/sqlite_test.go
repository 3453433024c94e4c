package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session, err := s.CreateSession(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Nil(t, got.Title)

	require.NoError(t, s.UpdateSessionTitle(ctx, session.ID, "Login flow"))
	got, err = s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Login flow", *got.Title)

	require.NoError(t, s.DeleteSession(ctx, session.ID))
	_, err = s.GetSession(ctx, session.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAppendAndListMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session, err := s.CreateSession(ctx, nil)
	require.NoError(t, err)

	advisory := "mock content"
	msgs := []*Message{
		{SessionID: session.ID, Role: RoleAssistant, Content: "Hello!"},
		{SessionID: session.ID, Role: RoleUser, Content: "Password reset"},
		{SessionID: session.ID, Role: RoleAssistant, Content: "# QA Support Response", Mode: "llm", Advisory: &advisory},
	}
	for _, m := range msgs {
		require.NoError(t, s.AppendMessage(ctx, m))
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}

	listed, err := s.ListMessages(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "Hello!", listed[0].Content)
	assert.Equal(t, RoleUser, listed[1].Role)
	assert.Equal(t, "llm", listed[2].Mode)
	require.NotNil(t, listed[2].Advisory)
	assert.Equal(t, advisory, *listed[2].Advisory)
	assert.Nil(t, listed[0].Advisory)

	limited, err := s.ListMessages(ctx, session.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAppendMessage_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.AppendMessage(ctx, &Message{SessionID: "missing", Role: RoleUser, Content: "hi"})
	assert.True(t, errors.Is(err, ErrNotFound))

	session, err := s.CreateSession(ctx, nil)
	require.NoError(t, err)
	err = s.AppendMessage(ctx, &Message{SessionID: session.ID, Role: "model", Content: "hi"})
	assert.True(t, errors.Is(err, ErrInvalidRole))
}

func TestListMessages_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	messages, err := s.ListMessages(context.Background(), "nope", 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteSession_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteSession(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
