package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/models"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeLocal struct {
	hits []models.Passage
	err  error
}

func (f *fakeLocal) Search(queryVector []float32, k int) ([]models.Passage, error) {
	return f.hits, f.err
}

type fakeRemote struct {
	hits []models.Passage
}

func (f *fakeRemote) Search(ctx context.Context, query string, vector []float32, k int) []models.Passage {
	return f.hits
}

func local(content string, score float64) models.Passage {
	return models.Passage{Content: content, Origin: models.OriginLocal, Score: score}
}

func remote(content string, score float64) models.Passage {
	return models.Passage{Content: content, Origin: models.OriginRemote, Score: score}
}

func TestRetrieveFusesBothBranches(t *testing.T) {
	r := NewRetriever(
		&fakeEmbedder{vector: []float32{1, 0}},
		&fakeLocal{hits: []models.Passage{local("l1", 0.9), local("l2", 0.3)}},
		&fakeRemote{hits: []models.Passage{remote("r1", 0.5)}},
		0.01,
	)

	got := r.Retrieve(context.Background(), "query", 4)
	require.Len(t, got, 3)
	assert.Equal(t, "l1", got[0].Content)
	assert.Equal(t, "r1", got[1].Content)
	assert.Equal(t, "l2", got[2].Content)
}

func TestRetrieveNeverExceedsK(t *testing.T) {
	r := NewRetriever(
		&fakeEmbedder{vector: []float32{1}},
		&fakeLocal{hits: []models.Passage{local("l1", 0.9), local("l2", 0.8), local("l3", 0.7)}},
		&fakeRemote{hits: []models.Passage{remote("r1", 0.5), remote("r2", 0.4)}},
		0.01,
	)

	got := r.Retrieve(context.Background(), "query", 3)
	assert.Len(t, got, 3)
}

func TestRetrieveRemoteWinsAtEqualScore(t *testing.T) {
	r := NewRetriever(
		&fakeEmbedder{vector: []float32{1}},
		&fakeLocal{hits: []models.Passage{local("tied-local", 0.5)}},
		&fakeRemote{hits: []models.Passage{remote("tied-remote", 0.5)}},
		0.01,
	)

	got := r.Retrieve(context.Background(), "query", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "tied-remote", got[0].Content)
	assert.Equal(t, "tied-local", got[1].Content)
}

func TestRetrieveSurvivesRemoteFailure(t *testing.T) {
	// the remote adapter fails soft by contract: empty result set
	r := NewRetriever(
		&fakeEmbedder{vector: []float32{1}},
		&fakeLocal{hits: []models.Passage{local("l1", 0.9)}},
		&fakeRemote{hits: nil},
		0.01,
	)

	got := r.Retrieve(context.Background(), "query", 4)
	require.Len(t, got, 1)
	assert.Equal(t, "l1", got[0].Content)
}

func TestRetrieveSurvivesLocalFailure(t *testing.T) {
	r := NewRetriever(
		&fakeEmbedder{vector: []float32{1}},
		&fakeLocal{err: errors.New("disk gone")},
		&fakeRemote{hits: []models.Passage{remote("r1", 0.5)}},
		0.01,
	)

	got := r.Retrieve(context.Background(), "query", 4)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].Content)
}

func TestRetrieveEmbeddingFailureFallsBackToTextOnly(t *testing.T) {
	localCalled := false
	r := NewRetriever(
		&fakeEmbedder{err: errors.New("embedding down")},
		searcherFunc(func(v []float32, k int) ([]models.Passage, error) {
			localCalled = true
			return nil, nil
		}),
		&fakeRemote{hits: []models.Passage{remote("r1", 0.5)}},
		0.01,
	)

	got := r.Retrieve(context.Background(), "query", 4)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].Content)
	assert.False(t, localCalled, "local branch needs a vector and must be skipped")
}

type searcherFunc func(queryVector []float32, k int) ([]models.Passage, error)

func (f searcherFunc) Search(queryVector []float32, k int) ([]models.Passage, error) {
	return f(queryVector, k)
}
