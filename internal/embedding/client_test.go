package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/internal/retry"
)

type fakeEmbedder struct {
	calls   int
	failFor int
	vector  []float32
	err     error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failFor {
		return nil, errors.New("upstream 503")
	}
	return f.vector, nil
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestEmbedSuccessPopulatesCache(t *testing.T) {
	fake := &fakeEmbedder{vector: []float32{1, 2, 3}}
	cache := NewCache(10, 0.2)
	c := NewClient(fake, cache, fastRetry(3), time.Second, 0, 3)

	v, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, 1, fake.calls)

	// second call is served from cache
	v, err = c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
	assert.Equal(t, 1, fake.calls)
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	fake := &fakeEmbedder{vector: []float32{1}, failFor: 2}
	c := NewClient(fake, NewCache(10, 0.2), fastRetry(3), time.Second, 0, 0)

	v, err := c.Embed(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 3, fake.calls)
}

func TestEmbedExhaustionReturnsTypedError(t *testing.T) {
	fake := &fakeEmbedder{err: errors.New("down")}
	c := NewClient(fake, nil, fastRetry(3), time.Second, 0, 0)

	_, err := c.Embed(context.Background(), "doomed")
	require.ErrorIs(t, err, ErrEmbedding)
	assert.Equal(t, 3, fake.calls)
}

func TestEmbedEmptyVectorIsRetried(t *testing.T) {
	fake := &fakeEmbedder{vector: nil}
	c := NewClient(fake, nil, fastRetry(2), time.Second, 0, 0)

	_, err := c.Embed(context.Background(), "empty")
	require.ErrorIs(t, err, ErrEmbedding)
	assert.Equal(t, 2, fake.calls)
}

func TestEmbedDimensionMismatchRejected(t *testing.T) {
	fake := &fakeEmbedder{vector: []float32{1, 2}}
	c := NewClient(fake, nil, fastRetry(2), time.Second, 0, 3)

	_, err := c.Embed(context.Background(), "short")
	require.ErrorIs(t, err, ErrEmbedding)
}
