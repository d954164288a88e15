package services

import "time"

// startOfDay 按 t 所在时区取当天零点
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextStreak 按自然日计算连续学习天数。
// 昨天学过则 +1，今天已学过保持不变，其余情况（断档或时钟回拨导致的未来日期）重置为 1。
func NextStreak(lastStudy *time.Time, previous int, now time.Time) int {
	if lastStudy == nil {
		return 1
	}

	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	last := startOfDay(lastStudy.In(now.Location()))

	switch {
	case last.Equal(yesterday):
		return previous + 1
	case last.Equal(today):
		return previous
	default:
		return 1
	}
}
