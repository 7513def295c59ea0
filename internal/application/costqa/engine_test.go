package costqa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
	apperrors "cloudcost-kg-api/pkg/errors"
)

type fakeChatModel struct {
	reply   string
	err     error
	gotMsgs []*schema.Message
	calls   int
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.gotMsgs = in
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported")
}

type fakeChatFactory struct {
	chatModel *fakeChatModel
	err       error
}

func (f *fakeChatFactory) Get(_ context.Context, _ string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chatModel, nil
}

type fakeAnswerCache struct {
	store map[string][]byte
	sets  int
}

func newFakeAnswerCache() *fakeAnswerCache {
	return &fakeAnswerCache{store: map[string][]byte{}}
}

func (f *fakeAnswerCache) Get(_ context.Context, key string) ([]byte, error) {
	if raw, ok := f.store[key]; ok {
		return raw, nil
	}
	return nil, fmt.Errorf("cache miss")
}

func (f *fakeAnswerCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = raw
	f.sets++
	return nil
}

type fakeQueryLogRepo struct {
	logs []*entity.QueryLog
}

func (f *fakeQueryLogRepo) Create(_ context.Context, log *entity.QueryLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeQueryLogRepo) ListRecent(_ context.Context, _ int) ([]*entity.QueryLog, error) {
	return f.logs, nil
}

// newTestEngine 组装一套全假依赖的引擎，按需替换个别依赖
func newTestEngine(embedder *fakeEmbedder, index *fakeVectorIndex, graph *fakeCostGraph, factory *fakeChatFactory, cache AnswerCache, queryLog *fakeQueryLogRepo) *Engine {
	resolver := NewResolver(embedder, index, 5, 0.30)
	retriever := NewRetriever(graph, 5)
	answerer := NewAnswerer(factory, "openai", "gpt-4o-mini")
	var logRepo repository.QueryLogRepository
	if queryLog != nil {
		logRepo = queryLog
	}
	return NewEngine(resolver, retriever, answerer, cache, logRepo, EngineConfig{})
}

func TestEngineAskAnswered(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1, 0.2}}}
	index := &fakeVectorIndex{matches: []entity.ResolvedService{
		{Name: "Cloud Storage", Score: 0.9},
		{Name: "Cloud SQL", Score: 0.6},
	}}
	graph := &fakeCostGraph{rows: []entity.CostRow{
		{Service: "Cloud Storage", Resource: "bucket-a", Cost: cost(12.5)},
	}}
	chatModel := &fakeChatModel{reply: "Cloud Storage cost 12.5 in total."}
	queryLog := &fakeQueryLogRepo{}

	eng := newTestEngine(embedder, index, graph, &fakeChatFactory{chatModel: chatModel}, nil, queryLog)

	out, err := eng.Ask(context.Background(), AskInput{Question: "How much did we spend on storage in January?"})
	require.NoError(t, err)

	assert.Equal(t, "Cloud Storage cost 12.5 in total.", out.Answer)
	assert.Equal(t, []string{"Cloud Storage", "Cloud SQL"}, out.Concepts)
	assert.Equal(t, []string{CostPath}, out.Paths)
	assert.Equal(t, ConfidenceAnswered, out.Confidence)
	assert.Equal(t, entity.IntentGeneral, out.Intent)
	assert.False(t, out.NoMatch)

	// 相似度最高的服务小写化后作为检索关键字
	assert.Equal(t, "cloud storage", out.Keyword)
	assert.Equal(t, "cloud storage", graph.gotQ.Keyword)

	// 时间短语转为账期范围随查询下发
	require.NotNil(t, graph.gotQ.Window.Start)
	assert.Equal(t, time.January, graph.gotQ.Window.Start.Month())

	// 上下文包含聚合与溯源
	assert.Contains(t, out.Context, "Service: Cloud Storage, TotalCost: 12.5")
	assert.Contains(t, out.Context, "Provenance:")

	// 审计记录写入
	require.Len(t, queryLog.logs, 1)
	assert.Equal(t, entity.QueryOutcomeAnswered, queryLog.logs[0].Outcome)
	assert.Equal(t, ConfidenceAnswered, queryLog.logs[0].Confidence)
}

func TestEngineAskNoMatch(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1}}}
	index := &fakeVectorIndex{matches: nil}
	graph := &fakeCostGraph{}
	chatModel := &fakeChatModel{reply: "unused"}
	queryLog := &fakeQueryLogRepo{}

	eng := newTestEngine(embedder, index, graph, &fakeChatFactory{chatModel: chatModel}, nil, queryLog)

	out, err := eng.Ask(context.Background(), AskInput{Question: "quantum blockchain spend"})
	require.NoError(t, err)

	assert.True(t, out.NoMatch)
	assert.Equal(t, NoMatchAnswer, out.Answer)
	assert.Equal(t, ConfidenceNoMatch, out.Confidence)
	assert.Empty(t, out.Concepts)
	assert.Empty(t, out.Paths)

	// 未命中不发起图检索与生成
	assert.Zero(t, graph.called)
	assert.Zero(t, chatModel.calls)

	require.Len(t, queryLog.logs, 1)
	assert.Equal(t, entity.QueryOutcomeNoMatch, queryLog.logs[0].Outcome)
}

func TestEngineAskResolutionUnavailableTreatedAsNoMatch(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("embedding endpoint down")}
	graph := &fakeCostGraph{}
	chatModel := &fakeChatModel{reply: "unused"}

	eng := newTestEngine(embedder, &fakeVectorIndex{}, graph, &fakeChatFactory{chatModel: chatModel}, nil, nil)

	out, err := eng.Ask(context.Background(), AskInput{Question: "storage spend"})
	require.NoError(t, err)

	assert.True(t, out.NoMatch)
	assert.Equal(t, NoMatchAnswer, out.Answer)
	assert.Zero(t, graph.called)
	assert.Zero(t, chatModel.calls)
}

func TestEngineAskRetrievalFailure(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1}}}
	index := &fakeVectorIndex{matches: []entity.ResolvedService{{Name: "Cloud SQL", Score: 0.8}}}
	graph := &fakeCostGraph{err: fmt.Errorf("neo4j unreachable")}
	queryLog := &fakeQueryLogRepo{}

	eng := newTestEngine(embedder, index, graph, &fakeChatFactory{chatModel: &fakeChatModel{}}, nil, queryLog)

	_, err := eng.Ask(context.Background(), AskInput{Question: "sql spend"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeRetrievalError, appErr.Code)
	assert.Equal(t, string(StageRetrieve), appErr.Detail)
	assert.ErrorIs(t, err, ErrRetrieval)

	require.Len(t, queryLog.logs, 1)
	assert.Equal(t, entity.QueryOutcomeFailed, queryLog.logs[0].Outcome)
	assert.Equal(t, string(StageRetrieve), queryLog.logs[0].FailStage)
}

func TestEngineAskGenerationFailure(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1}}}
	index := &fakeVectorIndex{matches: []entity.ResolvedService{{Name: "Cloud SQL", Score: 0.8}}}
	graph := &fakeCostGraph{rows: []entity.CostRow{{Service: "Cloud SQL", Resource: "db-1", Cost: cost(7)}}}
	chatModel := &fakeChatModel{err: fmt.Errorf("rate limited")}

	eng := newTestEngine(embedder, index, graph, &fakeChatFactory{chatModel: chatModel}, nil, nil)

	_, err := eng.Ask(context.Background(), AskInput{Question: "sql spend"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeGenerationError, appErr.Code)
	assert.Equal(t, string(StageGenerate), appErr.Detail)
}

func TestEngineAskEmptyQuestion(t *testing.T) {
	eng := newTestEngine(&fakeEmbedder{}, &fakeVectorIndex{}, &fakeCostGraph{}, &fakeChatFactory{chatModel: &fakeChatModel{}}, nil, nil)

	_, err := eng.Ask(context.Background(), AskInput{Question: "   "})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
}

func TestEngineAskAnswerCache(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1}}}
	index := &fakeVectorIndex{matches: []entity.ResolvedService{{Name: "Cloud SQL", Score: 0.8}}}
	graph := &fakeCostGraph{rows: []entity.CostRow{{Service: "Cloud SQL", Resource: "db-1", Cost: cost(7)}}}
	chatModel := &fakeChatModel{reply: "7 total."}
	cache := newFakeAnswerCache()

	eng := newTestEngine(embedder, index, graph, &fakeChatFactory{chatModel: chatModel}, cache, nil)

	out1, err := eng.Ask(context.Background(), AskInput{Question: "sql spend"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// 第二次命中缓存，不再触发图检索与生成
	out2, err := eng.Ask(context.Background(), AskInput{Question: "sql spend"})
	require.NoError(t, err)
	assert.Equal(t, out1.Answer, out2.Answer)
	assert.Equal(t, out1.Concepts, out2.Concepts)
	assert.Equal(t, 1, graph.called)
	assert.Equal(t, 1, chatModel.calls)
}

func TestEngineAskNoMatchNotCached(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1}}}
	index := &fakeVectorIndex{matches: nil}
	cache := newFakeAnswerCache()

	eng := newTestEngine(embedder, index, &fakeCostGraph{}, &fakeChatFactory{chatModel: &fakeChatModel{}}, cache, nil)

	_, err := eng.Ask(context.Background(), AskInput{Question: "nothing matches"})
	require.NoError(t, err)
	assert.Zero(t, cache.sets)
}

func TestEngineAskPromptComposition(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float64{{0.1}}}
	index := &fakeVectorIndex{matches: []entity.ResolvedService{{Name: "Cloud SQL", Score: 0.8}}}
	graph := &fakeCostGraph{rows: []entity.CostRow{{Service: "Cloud SQL", Resource: "db-1", Cost: cost(7)}}}
	chatModel := &fakeChatModel{reply: "ok"}

	eng := newTestEngine(embedder, index, graph, &fakeChatFactory{chatModel: chatModel}, nil, nil)

	_, err := eng.Ask(context.Background(), AskInput{Question: "which cost type for sql"})
	require.NoError(t, err)

	require.Len(t, chatModel.gotMsgs, 2)
	assert.Equal(t, schema.System, chatModel.gotMsgs[0].Role)
	assert.Contains(t, chatModel.gotMsgs[0].Content, "FinOps cloud cost expert")
	assert.Equal(t, schema.User, chatModel.gotMsgs[1].Role)
	assert.Contains(t, chatModel.gotMsgs[1].Content, "Context:")
	assert.Contains(t, chatModel.gotMsgs[1].Content, "which cost type for sql")

	// cost_type 意图在上下文中携带建议行
	assert.Contains(t, chatModel.gotMsgs[1].Content, "Recommended Cost Type: EffectiveCost")
}
