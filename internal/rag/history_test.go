package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAppendOrdering(t *testing.T) {
	h := NewHistory()
	const rounds = 5
	for i := 0; i < rounds; i++ {
		h.AppendExchange("chat-1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	assert.Equal(t, 2*rounds, h.Len("chat-1"))
	msgs := h.Window("chat-1", 2*rounds)
	require.Len(t, msgs, 2*rounds)
	for i := 0; i < rounds; i++ {
		assert.Equal(t, RoleUser, msgs[2*i].Role)
		assert.Equal(t, fmt.Sprintf("q%d", i), msgs[2*i].Content)
		assert.Equal(t, RoleAssistant, msgs[2*i+1].Role)
		assert.Equal(t, fmt.Sprintf("a%d", i), msgs[2*i+1].Content)
	}
}

func TestHistoryWindowTrailing(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 10; i++ {
		h.AppendExchange("chat-1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	msgs := h.Window("chat-1", 4)
	require.Len(t, msgs, 4)
	assert.Equal(t, "q8", msgs[0].Content)
	assert.Equal(t, "a9", msgs[3].Content)
}

func TestHistoryIsolatedPerConversation(t *testing.T) {
	h := NewHistory()
	h.AppendExchange("chat-1", "hello", "hi")
	assert.Zero(t, h.Len("chat-2"))
	assert.Empty(t, h.Window("chat-2", 4))
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory()
	h.AppendExchange("chat-1", "hello", "hi")
	h.Reset("chat-1")
	assert.Zero(t, h.Len("chat-1"))
	assert.Empty(t, h.Window("chat-1", 4))
}
