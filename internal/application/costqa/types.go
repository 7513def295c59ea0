package costqa

import (
	"cloudcost-kg-api/internal/domain/entity"
)

// Stage 流水线阶段标识，失败时随错误一起返回给调用方。
type Stage string

const (
	StageIntent   Stage = "intent"
	StageResolve  Stage = "resolve"
	StageRetrieve Stage = "retrieve"
	StageContext  Stage = "context"
	StageGenerate Stage = "generate"
)

// 固定的未命中响应与置信度约定
const (
	NoMatchAnswer = "No relevant services found."

	ConfidenceAnswered = 0.85
	ConfidenceNoMatch  = 0.2
)

// CostPath 问答结果引用的图谱路径
const CostPath = "CostRecord -> Resource -> Service"

// AskInput 一次问答输入。
type AskInput struct {
	Question string
	// TopK 覆盖配置中的候选服务数；<=0 使用配置值。
	TopK int
}

// AskOutput 一次问答结果。
type AskOutput struct {
	Answer     string            `json:"answer"`
	Concepts   []string          `json:"concepts"`
	Paths      []string          `json:"paths"`
	Confidence float64           `json:"confidence"`
	Intent     entity.Intent     `json:"intent"`
	Keyword    string            `json:"keyword,omitempty"`
	Window     entity.TimeWindow `json:"window,omitempty"`

	// Context 为送入语言模型的结构化上下文，供调试与控制台展示。
	Context string `json:"context,omitempty"`

	// NoMatch 标记本次为未命中终态，未发起图检索与生成。
	NoMatch bool `json:"no_match,omitempty"`
}
