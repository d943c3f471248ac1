package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "luna", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestAppendAndReadBack(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, h.Append(ctx, MessageRecord{
		SessionID: "s1", Seq: 0, Role: "user", Content: "what's overdue?", CreatedAt: now,
	}))
	require.NoError(t, h.Append(ctx, MessageRecord{
		SessionID: "s1", Seq: 1, Role: "assistant", Content: "3 tasks.", CreatedAt: now,
	}))
	require.NoError(t, h.Append(ctx, MessageRecord{
		SessionID: "s2", Seq: 0, Role: "user", Content: "hello", CreatedAt: now,
	}))

	msgs, err := h.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, 0, msgs[0].Seq)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "3 tasks.", msgs[1].Content)

	other, err := h.Messages(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	none, err := h.Messages(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendIsIdempotentPerSeq(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	rec := MessageRecord{SessionID: "s1", Seq: 0, Role: "user", Content: "hello", CreatedAt: time.Now()}
	require.NoError(t, h.Append(ctx, rec))
	require.NoError(t, h.Append(ctx, rec))

	msgs, err := h.Messages(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSessionsOrderedByRecency(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, h.Append(ctx, MessageRecord{SessionID: "old", Seq: 0, Role: "user", Content: "a", CreatedAt: base.Add(-time.Hour)}))
	require.NoError(t, h.Append(ctx, MessageRecord{SessionID: "new", Seq: 0, Role: "user", Content: "b", CreatedAt: base}))

	ids, err := h.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)
}

func TestClearRemovesOnlyOneSession(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, h.Append(ctx, MessageRecord{SessionID: "s1", Seq: 0, Role: "user", Content: "a", CreatedAt: now}))
	require.NoError(t, h.Append(ctx, MessageRecord{SessionID: "s2", Seq: 0, Role: "user", Content: "b", CreatedAt: now}))

	require.NoError(t, h.Clear(ctx, "s1"))

	gone, err := h.Messages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, gone)
	kept, err := h.Messages(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestReopenSeesPersistedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()

	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.Append(ctx, MessageRecord{SessionID: "s1", Seq: 0, Role: "user", Content: "persisted", CreatedAt: time.Now()}))
	require.NoError(t, h.Close())

	h2, err := OpenHistory(path)
	require.NoError(t, err)
	defer h2.Close()
	msgs, err := h2.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Content)
}
