package dto

// QueryRequest 问答请求
type QueryRequest struct {
	Question string `json:"question" binding:"required,max=2000"`
	// TopK 覆盖服务端默认的候选服务数，可选
	TopK int `json:"top_k,omitempty" binding:"omitempty,min=1,max=50"`
}

// QueryResponse 问答响应
type QueryResponse struct {
	Answer     string   `json:"answer"`
	Concepts   []string `json:"concepts"`
	Paths      []string `json:"paths"`
	Confidence float64  `json:"confidence"`
	Intent     string   `json:"intent"`
}

// ConceptResponse 服务概念详情响应
type ConceptResponse struct {
	Service   string   `json:"service"`
	Resources []string `json:"resources"`
}

// StatsResponse 图谱规模统计响应
type StatsResponse struct {
	NodeCount         int64 `json:"node_count"`
	RelationshipCount int64 `json:"relationship_count"`
}
