package costqa

import (
	"strings"
	"time"

	"cloudcost-kg-api/internal/domain/entity"
)

// referenceYear 未指定年份的月份/季度短语按该账期年解析。
const referenceYear = 2024

// timeRule 单条时间短语规则：短语命中即返回对应账期范围。
type timeRule struct {
	phrase string
	window entity.TimeWindow
}

// 规则按优先级排列，首个命中生效；追加月份/季度/年份短语只需扩展此列表。
var timeRules = buildTimeRules()

func buildTimeRules() []timeRule {
	rules := make([]timeRule, 0, 18)

	for m := time.January; m <= time.December; m++ {
		rules = append(rules, timeRule{
			phrase: strings.ToLower(m.String()),
			window: monthWindow(referenceYear, m),
		})
	}

	rules = append(rules,
		timeRule{phrase: "q1", window: rangeWindow(referenceYear, time.January, time.March)},
		timeRule{phrase: "q2", window: rangeWindow(referenceYear, time.April, time.June)},
		timeRule{phrase: "q3", window: rangeWindow(referenceYear, time.July, time.September)},
		timeRule{phrase: "q4", window: rangeWindow(referenceYear, time.October, time.December)},
		timeRule{phrase: "2023", window: rangeWindow(2023, time.January, time.December)},
		timeRule{phrase: "2024", window: rangeWindow(2024, time.January, time.December)},
	)

	return rules
}

// ExtractTimeWindow 识别问题中提及的账期范围。
// 纯函数；无短语命中时返回两侧无界的零值窗口。
func ExtractTimeWindow(question string) entity.TimeWindow {
	q := strings.ToLower(question)
	for _, rule := range timeRules {
		if strings.Contains(q, rule.phrase) {
			return rule.window
		}
	}
	return entity.TimeWindow{}
}

// monthWindow 构造单个月份的闭区间窗口
func monthWindow(year int, m time.Month) entity.TimeWindow {
	return rangeWindow(year, m, m)
}

// rangeWindow 构造从 from 月首日到 to 月末日的闭区间窗口
func rangeWindow(year int, from, to time.Month) entity.TimeWindow {
	start := time.Date(year, from, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, to, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	return entity.TimeWindow{Start: &start, End: &end}
}
