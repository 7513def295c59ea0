package costqa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/internal/domain/repository"
	apperrors "cloudcost-kg-api/pkg/errors"
	"cloudcost-kg-api/pkg/logger"
	"cloudcost-kg-api/pkg/metrics"
	"cloudcost-kg-api/pkg/tracer"
)

// AnswerCache 定义应用层对答案缓存的最小依赖（port）。
// Get 未命中返回错误即可，引擎一律按未命中处理。
type AnswerCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// EngineConfig 编排器配置。
type EngineConfig struct {
	TopK          int
	ProvenanceCap int

	EmbedTimeout    time.Duration
	GraphTimeout    time.Duration
	GenerateTimeout time.Duration

	AnswerTTL time.Duration
}

// Engine 问答流水线编排器。
// 请求级无状态：每次 Ask 是一串对外部服务的阻塞调用，不持有跨请求可变状态。
type Engine struct {
	resolver  *Resolver
	retriever *Retriever
	answerer  *Answerer

	cache    AnswerCache                   // 可选
	queryLog repository.QueryLogRepository // 可选

	cfg EngineConfig
}

// NewEngine 创建编排器。cache 与 queryLog 允许为 nil。
func NewEngine(resolver *Resolver, retriever *Retriever, answerer *Answerer, cache AnswerCache, queryLog repository.QueryLogRepository, cfg EngineConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.ProvenanceCap <= 0 {
		cfg.ProvenanceCap = 20
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 10 * time.Second
	}
	if cfg.GraphTimeout <= 0 {
		cfg.GraphTimeout = 15 * time.Second
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 60 * time.Second
	}
	if cfg.AnswerTTL <= 0 {
		cfg.AnswerTTL = 10 * time.Minute
	}
	return &Engine{
		resolver:  resolver,
		retriever: retriever,
		answerer:  answerer,
		cache:     cache,
		queryLog:  queryLog,
		cfg:       cfg,
	}
}

// Ask 执行一次完整的问答流水线。
// 状态流转：Start → IntentDetected → EntityResolved|NoMatch → ContextBuilt →
// AnswerGenerated|Failed。任一阶段失败立即终止，错误中标识失败阶段。
func (e *Engine) Ask(ctx context.Context, in AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "question is required")
	}

	ctx = logger.WithContext(ctx, logger.QuestionIDKey, uuid.New().String())
	ctx, span := tracer.Start(ctx, "costqa.Ask")
	defer span.End()

	started := time.Now()

	if out, ok := e.cachedAnswer(ctx, question); ok {
		return out, nil
	}

	// 意图识别与时间过滤相互独立，均为纯函数
	intent := ClassifyIntent(question)
	window := ExtractTimeWindow(question)
	logger.Debug(ctx, "intent detected", "intent", intent, "time_filtered", !window.IsZero())

	resolved, err := e.resolveEntities(ctx, question, in.TopK)
	if err != nil {
		if errors.Is(err, ErrResolutionUnavailable) {
			// 解析能力不可用等同于未命中
			logger.Warn(ctx, "resolution unavailable, treating as no match", "error", err.Error())
			return e.noMatch(ctx, question, intent, started), nil
		}
		return nil, e.fail(ctx, question, intent, StageResolve, apperrors.CodeResolutionUnavailable, err, started)
	}
	metrics.PipelineResolvedServices.WithLabelValues(string(intent)).Observe(float64(len(resolved)))

	if len(resolved) == 0 {
		return e.noMatch(ctx, question, intent, started), nil
	}

	// 取相似度最高的服务作为检索关键字，其余候选仅作为概念返回
	keyword := strings.ToLower(resolved[0].Name)
	concepts := make([]string, 0, len(resolved))
	for _, s := range resolved {
		concepts = append(concepts, s.Name)
	}

	analysis, err := e.retrieveCosts(ctx, keyword, intent, window)
	if err != nil {
		return nil, e.fail(ctx, question, intent, StageRetrieve, apperrors.CodeRetrievalError, err, started)
	}
	metrics.PipelineCostRowsRetrieved.WithLabelValues(string(intent)).Observe(float64(len(analysis.Rows)))

	contextText := BuildContext(analysis, intent, e.cfg.ProvenanceCap)

	answer, err := e.generateAnswer(ctx, question, contextText, intent)
	if err != nil {
		return nil, e.fail(ctx, question, intent, StageGenerate, apperrors.CodeGenerationError, err, started)
	}

	out := &AskOutput{
		Answer:     answer,
		Concepts:   concepts,
		Paths:      []string{CostPath},
		Confidence: ConfidenceAnswered,
		Intent:     intent,
		Keyword:    keyword,
		Window:     window,
		Context:    contextText,
	}

	metrics.PipelineQuestionsTotal.WithLabelValues(string(intent), string(entity.QueryOutcomeAnswered)).Inc()
	e.storeAnswer(ctx, question, out)
	e.audit(ctx, &entity.QueryLog{
		Question:   question,
		Intent:     intent,
		Keyword:    keyword,
		Concepts:   concepts,
		Outcome:    entity.QueryOutcomeAnswered,
		Confidence: ConfidenceAnswered,
		DurationMs: time.Since(started).Milliseconds(),
	})

	return out, nil
}

func (e *Engine) resolveEntities(ctx context.Context, question string, topK int) ([]entity.ResolvedService, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()

	start := time.Now()
	resolved, err := e.resolver.Resolve(ctx, question, topK)
	metrics.PipelineStageDuration.WithLabelValues(string(StageResolve)).Observe(time.Since(start).Seconds())
	return resolved, err
}

func (e *Engine) retrieveCosts(ctx context.Context, keyword string, intent entity.Intent, window entity.TimeWindow) (*entity.CostAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GraphTimeout)
	defer cancel()

	start := time.Now()
	analysis, err := e.retriever.Retrieve(ctx, keyword, intent, window)
	metrics.PipelineStageDuration.WithLabelValues(string(StageRetrieve)).Observe(time.Since(start).Seconds())
	return analysis, err
}

func (e *Engine) generateAnswer(ctx context.Context, question, contextText string, intent entity.Intent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	defer cancel()

	start := time.Now()
	answer, err := e.answerer.Generate(ctx, question, contextText, intent)
	metrics.PipelineStageDuration.WithLabelValues(string(StageGenerate)).Observe(time.Since(start).Seconds())
	return answer, err
}

// noMatch 构造固定的未命中终态结果，不发起图检索与生成。
func (e *Engine) noMatch(ctx context.Context, question string, intent entity.Intent, started time.Time) *AskOutput {
	metrics.PipelineQuestionsTotal.WithLabelValues(string(intent), string(entity.QueryOutcomeNoMatch)).Inc()
	e.audit(ctx, &entity.QueryLog{
		Question:   question,
		Intent:     intent,
		Outcome:    entity.QueryOutcomeNoMatch,
		Confidence: ConfidenceNoMatch,
		DurationMs: time.Since(started).Milliseconds(),
	})

	return &AskOutput{
		Answer:     NoMatchAnswer,
		Concepts:   []string{},
		Paths:      []string{},
		Confidence: ConfidenceNoMatch,
		Intent:     intent,
		NoMatch:    true,
	}
}

// fail 记录失败并返回标识了阶段的应用错误。
func (e *Engine) fail(ctx context.Context, question string, intent entity.Intent, stage Stage, code apperrors.ErrorCode, err error, started time.Time) error {
	ctx = logger.WithContext(ctx, logger.StageKey, string(stage))
	logger.Error(ctx, "pipeline stage failed", err)

	metrics.PipelineQuestionsTotal.WithLabelValues(string(intent), string(entity.QueryOutcomeFailed)).Inc()
	e.audit(ctx, &entity.QueryLog{
		Question:   question,
		Intent:     intent,
		Outcome:    entity.QueryOutcomeFailed,
		FailStage:  string(stage),
		DurationMs: time.Since(started).Milliseconds(),
	})

	appErr := apperrors.Wrap(err, code, "pipeline stage failed")
	appErr.Detail = string(stage)
	return appErr
}

// cachedAnswer 查询答案缓存；任何错误都按未命中处理。
func (e *Engine) cachedAnswer(ctx context.Context, question string) (*AskOutput, bool) {
	if e.cache == nil {
		return nil, false
	}
	raw, err := e.cache.Get(ctx, answerCacheKey(question))
	if err != nil {
		metrics.AnswerCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	var out AskOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.AnswerCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.AnswerCacheTotal.WithLabelValues("hit").Inc()
	return &out, true
}

// storeAnswer 写入答案缓存，失败仅记录日志。
func (e *Engine) storeAnswer(ctx context.Context, question string, out *AskOutput) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, answerCacheKey(question), out, e.cfg.AnswerTTL); err != nil {
		logger.Warn(ctx, "failed to cache answer", "error", err.Error())
	}
}

// audit 写入审计记录，失败仅记录日志。
func (e *Engine) audit(ctx context.Context, log *entity.QueryLog) {
	if e.queryLog == nil {
		return
	}
	if err := e.queryLog.Create(ctx, log); err != nil {
		logger.Warn(ctx, "failed to write query log", "error", err.Error())
	}
}

func answerCacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return "costqa:answer:" + hex.EncodeToString(sum[:16])
}
