package entity

import (
	"time"

	"github.com/lib/pq"
)

// QueryOutcome 一次问答的最终结果类型
type QueryOutcome string

const (
	QueryOutcomeAnswered QueryOutcome = "answered"
	QueryOutcomeNoMatch  QueryOutcome = "no_match"
	QueryOutcomeFailed   QueryOutcome = "failed"
)

// QueryLog 问答审计记录
type QueryLog struct {
	ID         string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Question   string         `json:"question" gorm:"type:text;not null"`
	Intent     Intent         `json:"intent" gorm:"type:varchar(32);index"`
	Keyword    string         `json:"keyword,omitempty" gorm:"type:varchar(255)"`
	Concepts   pq.StringArray `json:"concepts,omitempty" gorm:"type:text[]"`
	Outcome    QueryOutcome   `json:"outcome" gorm:"type:varchar(16);index"`
	Confidence float64        `json:"confidence"`
	FailStage  string         `json:"fail_stage,omitempty" gorm:"type:varchar(32)"`
	DurationMs int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (QueryLog) TableName() string {
	return "query_logs"
}
