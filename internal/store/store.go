// Package store is the local vector store: one JSON record file per
// ingested document plus an in-memory catalog of summaries. Records are
// enumerated and scored with cosine similarity at query time.
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ragbot/internal/models"
)

const (
	// DefaultSimilarityFloor discards passages with negligible relevance.
	DefaultSimilarityFloor = 0.1
	// readAttempts bounds the record-load retry used when a delete races
	// a running search.
	readAttempts  = 3
	readRetryWait = 100 * time.Millisecond
)

// LocalSource is the synthetic locator scheme for passages served from
// uploaded documents, so replies can cite them like remote URLs.
const LocalSource = "uploaded://"

type Store struct {
	dir     string
	catalog *Catalog
	floor   float64
}

func New(dir string, floor float64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating documents dir: %w", err)
	}
	if floor <= 0 {
		floor = DefaultSimilarityFloor
	}
	return &Store{dir: dir, catalog: NewCatalog(), floor: floor}, nil
}

func (s *Store) Catalog() *Catalog { return s.catalog }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save persists the full record, then registers the summary. The ordering
// matters: a reader must never see a catalog entry whose backing file does
// not exist yet.
func (s *Store) Save(rec models.DocumentRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding document record: %w", err)
	}
	tmp := s.path(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing document record: %w", err)
	}
	if err := os.Rename(tmp, s.path(rec.ID)); err != nil {
		return fmt.Errorf("publishing document record: %w", err)
	}
	s.catalog.Register(rec.DocumentSummary)
	return nil
}

// Load reads a persisted record, retrying a few times with a fixed delay
// since deletion may race a search over the same file.
func (s *Store) Load(id string) (models.DocumentRecord, error) {
	var lastErr error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(readRetryWait)
		}
		data, err := os.ReadFile(s.path(id))
		if err != nil {
			lastErr = err
			continue
		}
		var rec models.DocumentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			lastErr = err
			continue
		}
		return rec, nil
	}
	return models.DocumentRecord{}, fmt.Errorf("loading document %s: %w", id, lastErr)
}

// Delete removes the catalog entry and the backing file. The two steps are
// not transactional; a crash in between leaves an orphan file that Rebuild
// re-adopts on the next start.
func (s *Store) Delete(id string) error {
	if !s.catalog.Remove(id) {
		return fmt.Errorf("document %s not found", id)
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing document file: %w", err)
	}
	return nil
}

// Rebuild re-derives the catalog from the record files on disk. The files
// are authoritative; the catalog is just their index.
func (s *Store) Rebuild() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scanning documents dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		rec, err := s.Load(id)
		if err != nil {
			log.Warn().Err(err).Str("doc", id).Msg("skipping unreadable document record")
			continue
		}
		s.catalog.Register(rec.DocumentSummary)
		n++
	}
	if n > 0 {
		log.Info().Int("documents", n).Msg("catalog rebuilt from disk")
	}
	return nil
}

// Search scores every chunk of every catalogued document against the query
// vector. Per document, only the strongest ceil(k/2) chunks survive, so a
// single upload cannot dominate the result set; survivors are then sorted
// globally and the top k returned. Documents whose records cannot be read
// are skipped for this query, not treated as fatal.
func (s *Store) Search(queryVector []float32, k int) ([]models.Passage, error) {
	if k <= 0 || len(queryVector) == 0 {
		return nil, nil
	}
	perDoc := int(math.Ceil(float64(k) / 2))

	var all []models.Passage
	for _, summary := range s.catalog.List() {
		rec, err := s.Load(summary.ID)
		if err != nil {
			log.Warn().Err(err).Str("doc", summary.ID).Msg("skipping document during search")
			continue
		}

		var docHits []models.Passage
		for _, chunk := range rec.Chunks {
			sim := Cosine(queryVector, chunk.Embedding)
			if sim < s.floor {
				continue
			}
			docHits = append(docHits, models.Passage{
				Title:   rec.Filename,
				Source:  LocalSource + rec.ID,
				Content: chunk.Content,
				Origin:  models.OriginLocal,
				Score:   sim,
			})
		}
		sort.Slice(docHits, func(i, j int) bool { return docHits[i].Score > docHits[j].Score })
		if len(docHits) > perDoc {
			docHits = docHits[:perDoc]
		}
		all = append(all, docHits...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}
