// Package week 负责把任意日期映射到所在周的周一（周一为一周的第一天）。
package week

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout 是周标识的文本格式。
const KeyLayout = "2006-01-02"

// Start 返回 t 所在周周一零点，时区沿用 t 的 Location。
// 周日视为第 7 天，因此回退 6 天；其余日期回退 weekday-1 天。
func Start(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

// End 返回该周周日零点。
func End(t time.Time) time.Time {
	return Start(t).AddDate(0, 0, 6)
}

// Key 返回 t 所在周的标识，例如 "2024-01-08"。
func Key(t time.Time) string {
	return Start(t).Format(KeyLayout)
}

// Parse 解析周标识（或任意日期），并归一到对应的周一。
func Parse(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("week key is empty")
	}

	day, err := time.ParseInLocation(KeyLayout, trimmed, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week key %q: %w", raw, err)
	}
	return Start(day), nil
}

// Normalize 把任意日期文本转换成标准周标识。
func Normalize(raw string) (string, error) {
	start, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return start.Format(KeyLayout), nil
}
