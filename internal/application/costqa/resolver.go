package costqa

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
)

const (
	defaultTopK = 5
	maxTopK     = 50
)

// Resolver 语义实体解析器：将问题向量化并在服务向量索引中做近邻检索。
type Resolver struct {
	embedder embedding.Embedder
	index    repository.ServiceVectorIndex

	topK          int
	minSimilarity float64
}

// NewResolver 创建语义实体解析器。
// minSimilarity 低于该余弦相似度的候选被丢弃，避免把明显无关的服务当作命中。
func NewResolver(embedder embedding.Embedder, index repository.ServiceVectorIndex, topK int, minSimilarity float64) *Resolver {
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	return &Resolver{
		embedder:      embedder,
		index:         index,
		topK:          topK,
		minSimilarity: minSimilarity,
	}
}

// Resolve 返回按相似度降序排列的候选服务，长度不超过 topK。
// Embedder 或索引不可用时返回 ErrResolutionUnavailable，编排器将其等同于未命中。
func (r *Resolver) Resolve(ctx context.Context, question string, topK int) ([]entity.ResolvedService, error) {
	if r == nil || r.embedder == nil || r.index == nil {
		return nil, ErrResolutionUnavailable
	}
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, fmt.Errorf("question is empty")
	}
	if topK <= 0 {
		topK = r.topK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vec, err := r.embedQuestion(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", ErrResolutionUnavailable, err)
	}

	matches, err := r.index.SearchServices(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", ErrResolutionUnavailable, err)
	}

	resolved := make([]entity.ResolvedService, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		if m.Score < r.minSimilarity {
			continue
		}
		resolved = append(resolved, m)
	}
	return resolved, nil
}

func (r *Resolver) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	v64, err := r.embedder.EmbedStrings(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}
