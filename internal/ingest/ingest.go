// Package ingest turns uploaded files into persisted, embedded document
// records: extraction, normalization, chunking, batched embedding, then
// durable persistence followed by catalog registration.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ragbot/internal/chunker"
	"ragbot/internal/extract"
	"ragbot/internal/helper"
	"ragbot/internal/models"
	"ragbot/internal/store"
)

// DefaultBatchSize bounds peak concurrent embedding calls: within a batch
// all calls are in flight at once, batches themselves run sequentially.
const DefaultBatchSize = 5

// Embedder is the chunk-embedding dependency.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Pipeline struct {
	embedder  Embedder
	store     *store.Store
	chunkOpts chunker.Options
	batchSize int
}

func New(embedder Embedder, st *store.Store, chunkOpts chunker.Options, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{embedder: embedder, store: st, chunkOpts: chunkOpts, batchSize: batchSize}
}

// Ingest processes one uploaded file through the full pipeline and returns
// the catalog summary. Per-chunk embedding failures are logged and the
// chunk dropped; the document as a whole still succeeds. Unsupported or
// unextractable files fail immediately.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename, contentType string) (models.DocumentSummary, error) {
	text, err := extract.Text(data, filename, contentType)
	if err != nil {
		return models.DocumentSummary{}, err
	}

	normalized := chunker.Normalize(text)
	fragments, err := chunker.Split(normalized, p.chunkOpts)
	if err != nil {
		return models.DocumentSummary{}, err
	}
	log.Info().
		Str("file", filename).
		Int("text_len", len(normalized)).
		Int("chunks", len(fragments)).
		Msg("document chunked")

	embedded := p.embedBatches(ctx, filename, fragments)

	id, err := helper.NewDocumentID()
	if err != nil {
		return models.DocumentSummary{}, err
	}
	rec := models.DocumentRecord{
		DocumentSummary: models.DocumentSummary{
			ID:            id,
			Filename:      filename,
			ContentType:   contentType,
			UploadedAt:    time.Now().UTC(),
			TextLength:    len(normalized),
			ChunkCount:    len(fragments),
			EmbeddedCount: len(embedded),
		},
		Chunks: embedded,
	}

	// persist first, then register: Save does both in that order, so a
	// reader never sees a catalog entry without its backing file
	if err := p.store.Save(rec); err != nil {
		return models.DocumentSummary{}, err
	}
	log.Info().
		Str("doc", id).
		Str("file", filename).
		Int("embedded", rec.EmbeddedCount).
		Int("total", rec.ChunkCount).
		Msg("document ingested")
	return rec.DocumentSummary, nil
}

// embedBatches embeds fragments in fixed-size batches, concurrent within a
// batch and sequential across batches. Failed chunks are dropped, keeping
// the surviving chunks in document order.
func (p *Pipeline) embedBatches(ctx context.Context, filename string, fragments []string) []models.Chunk {
	vectors := make([][]float32, len(fragments))

	for start := 0; start < len(fragments); start += p.batchSize {
		end := start + p.batchSize
		if end > len(fragments) {
			end = len(fragments)
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				v, err := p.embedder.Embed(gctx, fragments[i])
				if err != nil {
					log.Warn().Err(err).Str("file", filename).Int("chunk", i).Msg("chunk embedding failed, dropping chunk")
					return nil
				}
				mu.Lock()
				vectors[i] = v
				mu.Unlock()
				return nil
			})
		}
		g.Wait()
	}

	var chunks []models.Chunk
	for i, v := range vectors {
		if v == nil {
			continue
		}
		chunks = append(chunks, models.Chunk{ID: i + 1, Content: fragments[i], Embedding: v})
	}
	return chunks
}
