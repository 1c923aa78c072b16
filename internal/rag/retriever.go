package rag

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ragbot/internal/models"
)

// DefaultRemoteBonus is added to remote-index scores during fusion: at
// equal underlying relevance the curated index outranks ad hoc local
// uploads.
const DefaultRemoteBonus = 0.01

// LocalSearcher scans the local document store by vector.
type LocalSearcher interface {
	Search(queryVector []float32, k int) ([]models.Passage, error)
}

// RemoteSearcher queries the external hybrid index. It fails soft.
type RemoteSearcher interface {
	Search(ctx context.Context, query string, vector []float32, k int) []models.Passage
}

// QueryEmbedder turns query text into a vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever fuses local-store and remote-index retrieval. The two branches
// run concurrently and fail independently; one branch's failure never
// suppresses the other's results.
type Retriever struct {
	embedder QueryEmbedder
	local    LocalSearcher
	remote   RemoteSearcher
	bonus    float64
}

func NewRetriever(embedder QueryEmbedder, local LocalSearcher, remote RemoteSearcher, remoteBonus float64) *Retriever {
	if remoteBonus <= 0 {
		remoteBonus = DefaultRemoteBonus
	}
	return &Retriever{embedder: embedder, local: local, remote: remote, bonus: remoteBonus}
}

// Retrieve returns the top k fused passages for the query. Embedding
// failure disables the local branch for this query (it needs a vector) but
// the remote branch still runs with text only.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) []models.Passage {
	if k <= 0 {
		return nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("query embedding failed, falling back to text-only retrieval")
	}

	var localHits, remoteHits []models.Passage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(vector) == 0 {
			return nil
		}
		hits, err := r.local.Search(vector, k)
		if err != nil {
			log.Warn().Err(err).Msg("local store search failed")
			return nil
		}
		localHits = hits
		return nil
	})
	g.Go(func() error {
		remoteHits = r.remote.Search(gctx, query, vector, k)
		return nil
	})
	g.Wait()

	return r.fuse(localHits, remoteHits, k)
}

func (r *Retriever) fuse(local, remote []models.Passage, k int) []models.Passage {
	all := make([]models.Passage, 0, len(local)+len(remote))
	all = append(all, local...)
	all = append(all, remote...)

	sort.SliceStable(all, func(i, j int) bool {
		return r.fusedScore(all[i]) > r.fusedScore(all[j])
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func (r *Retriever) fusedScore(p models.Passage) float64 {
	if p.Origin == models.OriginRemote {
		return p.Score + r.bonus
	}
	return p.Score
}
