package fusion

import (
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// Trend labels how a conversation's priority has moved lately.
type Trend string

const (
	TrendImproving     Trend = "improving"
	TrendStable        Trend = "stable"
	TrendDeteriorating Trend = "deteriorating"
)

const trendWindow = 3

// ConversationTrend compares the first and last of the most recent marks.
func ConversationTrend(marks []domain.SentimentMark) Trend {
	if len(marks) < 2 {
		return TrendStable
	}
	recent := marks
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	first, last := recent[0].Priority, recent[len(recent)-1].Priority
	switch {
	case last > first+2:
		return TrendDeteriorating
	case last < first-2:
		return TrendImproving
	}
	return TrendStable
}

// HealthScore rates a conversation from 1 (bad) to 10 (good). An empty
// history scores 5.
func HealthScore(marks []domain.SentimentMark) int {
	if len(marks) == 0 {
		return 5
	}
	sum := 0
	for _, m := range marks {
		sum += m.Priority
	}
	avg := float64(sum) / float64(len(marks))
	score := 11 - avg
	if score < 1 {
		score = 1
	}
	if len(marks) >= 2 {
		first, last := marks[0].Priority, marks[len(marks)-1].Priority
		switch {
		case last > first+3:
			score -= 2
		case last < first-2:
			score++
		}
	}
	return clampPriority(int(score))
}

var responseWindows = map[domain.Urgency]time.Duration{
	domain.UrgencyCritical: 5 * time.Minute,
	domain.UrgencyHigh:     15 * time.Minute,
	domain.UrgencyMedium:   30 * time.Minute,
	domain.UrgencyLow:      60 * time.Minute,
}

// ResponseWindow is how soon a human should answer a message of urgency u.
func ResponseWindow(u domain.Urgency) time.Duration {
	if d, ok := responseWindows[u]; ok {
		return d
	}
	return time.Hour
}
