package costqa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTimeWindow(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "一月",
			question:  "How much did we spend in January?",
			wantStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "二月为闰年 29 天",
			question:  "february storage costs",
			wantStart: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "十二月",
			question:  "december billing",
			wantStart: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "一季度",
			question:  "Q1 spend overview",
			wantStart: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "四季度",
			question:  "how did q4 look",
			wantStart: time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "整年 2023",
			question:  "total cost in 2023",
			wantStart: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ExtractTimeWindow(tt.question)
			require.False(t, w.IsZero())
			require.NotNil(t, w.Start)
			require.NotNil(t, w.End)
			assert.Equal(t, tt.wantStart, *w.Start)
			assert.Equal(t, tt.wantEnd, *w.End)
		})
	}
}

func TestExtractTimeWindowNoPhrase(t *testing.T) {
	// 无时间短语返回两侧无界的零值窗口
	w := ExtractTimeWindow("how much did we spend on storage")
	assert.True(t, w.IsZero())
	assert.Nil(t, w.Start)
	assert.Nil(t, w.End)
}

func TestExtractTimeWindowFirstMatchWins(t *testing.T) {
	// 月份规则先于季度/年份规则
	w := ExtractTimeWindow("compare january with q2 of 2024")
	require.NotNil(t, w.Start)
	assert.Equal(t, time.January, w.Start.Month())
	assert.Equal(t, time.January, w.End.Month())
}
