package agent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimKeepsShortHistories(t *testing.T) {
	trimmer := KeepSystemLastNTrimmer{N: 10}
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hi"),
		{Role: schema.Assistant, Content: "hello"},
	}
	assert.Equal(t, history, trimmer.Trim(history))
	assert.Empty(t, trimmer.Trim(nil))
}

func TestTrimDropsOldestNonSystem(t *testing.T) {
	trimmer := KeepSystemLastNTrimmer{N: 2}
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("one"),
		{Role: schema.Assistant, Content: "two"},
		schema.UserMessage("three"),
		{Role: schema.Assistant, Content: "four"},
	}
	out := trimmer.Trim(history)
	require.Len(t, out, 3)
	assert.Equal(t, schema.System, out[0].Role)
	assert.Equal(t, "three", out[1].Content)
	assert.Equal(t, "four", out[2].Content)
}

func TestTrimNeverStartsOnToolResult(t *testing.T) {
	trimmer := KeepSystemLastNTrimmer{N: 3}
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("one"),
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{ID: "c1"}}},
		schema.ToolMessage(`{"results":[]}`, "c1"),
		{Role: schema.Assistant, Content: "recorded"},
		schema.UserMessage("two"),
	}
	out := trimmer.Trim(history)

	// A naive cut would begin on the tool result; the window moves back so
	// the tool call and its result stay together.
	require.Len(t, out, 5)
	assert.Equal(t, schema.System, out[0].Role)
	assert.Equal(t, schema.Assistant, out[1].Role)
	require.Len(t, out[1].ToolCalls, 1)
	assert.Equal(t, schema.Tool, out[2].Role)
}

func TestTrimSystemOnly(t *testing.T) {
	trimmer := KeepSystemLastNTrimmer{N: 0}
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("one"),
		{Role: schema.Assistant, Content: "two"},
	}
	out := trimmer.Trim(history)
	require.Len(t, out, 1)
	assert.Equal(t, schema.System, out[0].Role)
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: 2})

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("one"),
		nil,
		{Role: schema.Assistant, Content: "two"},
		schema.UserMessage("three"),
	}
	require.NoError(t, store.Save(ctx, history))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	// The nil entry is dropped and the trimmer applied on save.
	require.Len(t, loaded, 3)
	assert.Equal(t, schema.System, loaded[0].Role)
	assert.Equal(t, "two", loaded[1].Content)
	assert.Equal(t, "three", loaded[2].Content)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestHistoryStoreKeyedBySession(t *testing.T) {
	store := NewMemoryHistoryStore(nil)
	ctxA := WithSessionKey(context.Background(), "a")
	ctxB := WithSessionKey(context.Background(), "b")

	require.NoError(t, store.Save(ctxA, []*schema.Message{schema.UserMessage("for a")}))

	loaded, err := store.Load(ctxB)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	loaded, err = store.Load(ctxA)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "for a", loaded[0].Content)
}
