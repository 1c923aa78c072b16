// Package rag drives retrieval-augmented chat: fused retrieval, prompt
// assembly bounded by a rolling history window, completion, and history
// bookkeeping.
package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"ragbot/internal/models"
)

// ErrEmptyMessage rejects blank user input up front, no retry.
var ErrEmptyMessage = errors.New("empty message")

// Completer generates a reply for an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Chat is the single entry point shared by the Telegram transport and the
// HTTP API, which keeps behavior identical across channels.
type Chat struct {
	retriever     *Retriever
	completer     Completer
	history       *History
	topK          int
	historyWindow int
}

func NewChat(retriever *Retriever, completer Completer, history *History, topK, historyWindow int) *Chat {
	if topK <= 0 {
		topK = 4
	}
	if historyWindow <= 0 {
		historyWindow = 4
	}
	return &Chat{
		retriever:     retriever,
		completer:     completer,
		history:       history,
		topK:          topK,
		historyWindow: historyWindow,
	}
}

// Respond answers userText within the conversation, returning the reply
// and the passages it was grounded on. Retrieval degrades gracefully;
// only completion exhaustion surfaces as an error.
func (c *Chat) Respond(ctx context.Context, conversationID, userText string) (string, []models.Passage, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", nil, ErrEmptyMessage
	}

	passages := c.retriever.Retrieve(ctx, userText, c.topK)
	prompt := BuildPrompt(c.history.Window(conversationID, c.historyWindow), passages, userText)

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(reply) == "" {
		reply = models.EmptyReplyGlyph
	}

	c.history.AppendExchange(conversationID, userText, reply)
	log.Debug().
		Str("conversation", conversationID).
		Int("passages", len(passages)).
		Int("reply_len", len(reply)).
		Msg("chat exchange completed")
	return reply, passages, nil
}

// Reset clears the conversation's history.
func (c *Chat) Reset(conversationID string) {
	c.history.Reset(conversationID)
}
