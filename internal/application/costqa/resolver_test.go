package costqa

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
)

type fakeEmbedder struct {
	vectors  [][]float64
	err      error
	gotTexts []string
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.gotTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

type fakeVectorIndex struct {
	matches []entity.ResolvedService
	err     error
	gotVec  []float32
	gotTopK int
}

func (f *fakeVectorIndex) SearchServices(_ context.Context, vector []float32, topK int) ([]entity.ResolvedService, error) {
	f.gotVec = vector
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeVectorIndex) UpsertServiceEmbeddings(_ context.Context, _ []repository.ServiceEmbedding) error {
	return nil
}

func TestResolverResolve(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1, 0.2, 0.3}}}
	index := &fakeVectorIndex{matches: []entity.ResolvedService{
		{Name: "Cloud Storage", Score: 0.92},
		{Name: "Cloud SQL", Score: 0.55},
		{Name: "Pub/Sub", Score: 0.12},
	}}

	r := NewResolver(embedder, index, 5, 0.30)
	resolved, err := r.Resolve(context.Background(), "how much for storage", 0)
	require.NoError(t, err)

	// 低于相似度阈值的候选被丢弃
	require.Len(t, resolved, 2)
	assert.Equal(t, "Cloud Storage", resolved[0].Name)
	assert.Equal(t, "Cloud SQL", resolved[1].Name)

	// 问题原文送入 embedder，向量转为 float32 后送入索引
	assert.Equal(t, []string{"how much for storage"}, embedder.gotTexts)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, index.gotVec)
	assert.Equal(t, 5, index.gotTopK)
}

func TestResolverResolveTopKOverride(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.5}}}
	index := &fakeVectorIndex{}

	r := NewResolver(embedder, index, 5, 0)
	_, err := r.Resolve(context.Background(), "question", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, index.gotTopK)

	// 超出上限的 topK 被钳制
	_, err = r.Resolve(context.Background(), "question", 500)
	require.NoError(t, err)
	assert.Equal(t, maxTopK, index.gotTopK)
}

func TestResolverResolveEmptyQuestion(t *testing.T) {
	r := NewResolver(&fakeEmbedder{}, &fakeVectorIndex{}, 5, 0)
	_, err := r.Resolve(context.Background(), "   ", 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResolutionUnavailable)
}

func TestResolverResolveEmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("connection refused")}
	r := NewResolver(embedder, &fakeVectorIndex{}, 5, 0)

	_, err := r.Resolve(context.Background(), "question", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionUnavailable)
}

func TestResolverResolveIndexFailure(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.5}}}
	index := &fakeVectorIndex{err: fmt.Errorf("collection not loaded")}
	r := NewResolver(embedder, index, 5, 0)

	_, err := r.Resolve(context.Background(), "question", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionUnavailable)
}

func TestResolverResolveNotConfigured(t *testing.T) {
	r := NewResolver(nil, nil, 5, 0)
	_, err := r.Resolve(context.Background(), "question", 0)
	assert.ErrorIs(t, err, ErrResolutionUnavailable)
}
