package costqa

import "errors"

var (
	// ErrResolutionUnavailable 表示语义解析能力不可用（Embedder 或向量索引故障/为空）。
	// 编排器将其等同于未命中处理。
	ErrResolutionUnavailable = errors.New("semantic resolution unavailable")

	// ErrRetrieval 表示成本图谱检索失败，不得与“无行匹配”混淆。
	ErrRetrieval = errors.New("cost graph retrieval failed")

	// ErrGeneration 表示语言模型生成失败，不做静默重试。
	ErrGeneration = errors.New("answer generation failed")
)
