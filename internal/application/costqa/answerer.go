package costqa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"cloudcost-kg-api/internal/domain/entity"
	"cloudcost-kg-api/pkg/metrics"
)

// ChatModelFactory 定义应用层对 LLM ChatModel 的最小依赖（port）。
// 由基础设施层提供具体实现（例如 EinoFactory）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// finopsSystemPrompt 约束模型仅做财务推理、不引入上下文之外的信息。
const finopsSystemPrompt = `You are a FinOps cloud cost expert.
Use financial logic.
Avoid assumptions.
Use only the provided context. Do not introduce information that is not present in it.`

// 按意图附加的补充指令
var intentInstructions = map[entity.Intent]string{
	entity.IntentComparison:         "Compare the services in the context by total cost and state the difference explicitly.",
	entity.IntentRanking:            "Present the services as a ranked list ordered by total cost, highest first.",
	entity.IntentCommitmentAnalysis: "Focus on commitment and utilization aspects; commitment-type charges are already excluded from usage totals.",
	entity.IntentCostType:           "Explain the difference between billed cost and effective cost and follow the recommended cost type in the context.",
}

// Answerer 答案生成器：携带结构化上下文向语言模型发起单轮请求。
type Answerer struct {
	factory  ChatModelFactory
	provider string
	model    string
}

// NewAnswerer 创建答案生成器。provider 为空时使用工厂默认提供商。
func NewAnswerer(factory ChatModelFactory, provider, modelName string) *Answerer {
	return &Answerer{
		factory:  factory,
		provider: provider,
		model:    modelName,
	}
}

// Generate 发送问题与结构化上下文，返回模型的原文回答。
// 上游不可用或超时返回 ErrGeneration；不做静默重试，由调用方呈现失败。
func (a *Answerer) Generate(ctx context.Context, question, contextText string, intent entity.Intent) (string, error) {
	if a == nil || a.factory == nil {
		return "", fmt.Errorf("%w: llm factory not configured", ErrGeneration)
	}

	chatModel, err := a.factory.Get(ctx, a.provider)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPromptFor(intent)),
		schema.UserMessage(fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", contextText, question)),
	}

	start := time.Now()
	out, err := chatModel.Generate(ctx, msgs)
	metrics.LLMCallDuration.WithLabelValues(a.provider, a.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(a.provider, a.model, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	metrics.LLMCallTotal.WithLabelValues(a.provider, a.model, "ok").Inc()

	return out.Content, nil
}

func systemPromptFor(intent entity.Intent) string {
	extra, ok := intentInstructions[intent]
	if !ok {
		return finopsSystemPrompt
	}
	return finopsSystemPrompt + "\n" + strings.TrimSpace(extra)
}
