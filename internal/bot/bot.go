// Package bot is the Telegram transport: a long-polling loop that feeds
// incoming text to the shared chat orchestrator and uploaded documents to
// the ingestion pipeline. It adds no behavior of its own.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
)

const defaultAPIBase = "https://api.telegram.org"

// maxUploadBytes rejects files too large to chunk and embed interactively.
const maxUploadBytes = 20 << 20

// Chatter is the chat entry point, shared verbatim with the HTTP API.
type Chatter interface {
	Respond(ctx context.Context, conversationID, text string) (string, []models.Passage, error)
	Reset(conversationID string)
}

// Ingestor accepts uploaded file bytes.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, filename, contentType string) (models.DocumentSummary, error)
}

// Lister exposes the document catalog for the /docs command.
type Lister interface {
	List() []models.DocumentSummary
}

type Bot struct {
	token       string
	apiBase     string
	pollTimeout int
	errPause    time.Duration
	client      *http.Client
	chat        Chatter
	ingest      Ingestor
	docs        Lister
}

func New(token string, pollTimeoutSecs int, chat Chatter, ingest Ingestor, docs Lister) *Bot {
	if pollTimeoutSecs <= 0 {
		pollTimeoutSecs = 30
	}
	return &Bot{
		token:       token,
		apiBase:     defaultAPIBase,
		pollTimeout: pollTimeoutSecs,
		// pause after a failed or rejected poll so transient API errors
		// never turn the loop into a tight spin
		errPause: 5 * time.Second,
		// poll requests block server-side for pollTimeout, give them slack
		client: &http.Client{Timeout: time.Duration(pollTimeoutSecs+15) * time.Second},
		chat:   chat,
		ingest: ingest,
		docs:   docs,
	}
}

// Run long-polls getUpdates until the context ends.
func (b *Bot) Run(ctx context.Context) {
	offset := 0
	log.Info().Msg("telegram bot polling started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
			b.apiBase, b.token, offset, b.pollTimeout)
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := b.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("telegram poll error")
			time.Sleep(b.errPause)
			continue
		}

		var body updatesResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		status := resp.StatusCode
		resp.Body.Close()

		if status != http.StatusOK || decodeErr != nil || !body.OK {
			log.Error().Err(decodeErr).Int("status", status).Msg("telegram poll rejected")
			time.Sleep(b.errPause)
			continue
		}

		for _, u := range body.Result {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			b.handleMessage(ctx, u.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *message) {
	convID := strconv.FormatInt(msg.Chat.ID, 10)

	if msg.Document != nil {
		b.handleUpload(ctx, msg.Chat.ID, msg.Document)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.reply(msg.Chat.ID, "Send me a question, or upload a document to add it to the knowledge base.")
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg.Chat.ID, convID, text)
		return
	}

	reply, passages, err := b.chat.Respond(ctx, convID, text)
	if err != nil {
		log.Error().Err(err).Str("conversation", convID).Msg("chat failed")
		b.reply(msg.Chat.ID, models.ApologeticReply)
		return
	}
	b.reply(msg.Chat.ID, formatReply(reply, passages))
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, convID, text string) {
	cmd, _, _ := strings.Cut(text, " ")
	switch cmd {
	case "/start", "/help":
		b.reply(chatID, helpText)
	case "/reset":
		b.chat.Reset(convID)
		b.reply(chatID, "Conversation history cleared.")
	case "/docs":
		b.reply(chatID, formatDocList(b.docs.List()))
	default:
		b.reply(chatID, "Unknown command. "+helpText)
	}
}

const helpText = "Ask me anything and I will answer from the knowledge base.\n" +
	"/reset - clear conversation history\n" +
	"/docs - list uploaded documents\n" +
	"Upload a document (pdf, docx, xlsx, ods, md, txt) to add it."

func (b *Bot) handleUpload(ctx context.Context, chatID int64, doc *document) {
	if doc.FileSize > maxUploadBytes {
		b.reply(chatID, "That file is too large to ingest.")
		return
	}

	data, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		log.Error().Err(err).Str("file", doc.FileName).Msg("telegram file download failed")
		b.reply(chatID, models.ApologeticReply)
		return
	}

	summary, err := b.ingest.Ingest(ctx, data, doc.FileName, doc.MimeType)
	if err != nil {
		log.Error().Err(err).Str("file", doc.FileName).Msg("ingestion failed")
		b.reply(chatID, fmt.Sprintf("Could not ingest %s: unsupported or unreadable file.", doc.FileName))
		return
	}
	b.reply(chatID, fmt.Sprintf("Ingested %s: %d of %d chunks embedded.",
		summary.Filename, summary.EmbeddedCount, summary.ChunkCount))
}

// downloadFile resolves the file path via getFile, then fetches the bytes.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", b.apiBase, b.token, fileID)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getFile request: %w", err)
	}
	defer resp.Body.Close()

	var result fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode getFile response: %w", err)
	}
	if !result.OK || result.Result.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile failed for file_id=%s", fileID)
	}

	dlURL := fmt.Sprintf("%s/file/bot%s/%s", b.apiBase, b.token, result.Result.FilePath)
	dlReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, dlURL, nil)
	dlResp, err := b.client.Do(dlReq)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", dlResp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(dlResp.Body, maxUploadBytes+1))
}

func (b *Bot) reply(chatID int64, text string) {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.token)
	resp, err := b.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("telegram send error")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		// retry without Markdown if parse_mode caused the rejection
		if strings.Contains(string(respBody), "parse") {
			payload["parse_mode"] = ""
			body2, _ := json.Marshal(payload)
			retryResp, err := b.client.Post(url, "application/json", bytes.NewReader(body2))
			if err == nil {
				retryResp.Body.Close()
			}
		} else {
			log.Warn().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("telegram send non-200")
		}
	}
}

// formatReply appends a numbered source list matching the [#n] citations
// in the reply text.
func formatReply(reply string, passages []models.Passage) string {
	if len(passages) == 0 {
		return reply
	}
	var sb strings.Builder
	sb.WriteString(reply)
	sb.WriteString("\n\nSources:")
	for i, p := range passages {
		title := p.Title
		if title == "" {
			title = p.Source
		}
		fmt.Fprintf(&sb, "\n[#%d] %s - %s", i+1, title, p.Source)
	}
	return sb.String()
}

func formatDocList(docs []models.DocumentSummary) string {
	if len(docs) == 0 {
		return "No documents uploaded yet."
	}
	var sb strings.Builder
	sb.WriteString("Uploaded documents:")
	for _, d := range docs {
		fmt.Fprintf(&sb, "\n- %s (%d/%d chunks, %s)", d.Filename, d.EmbeddedCount, d.ChunkCount, d.ID)
	}
	return sb.String()
}
