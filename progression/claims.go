package progression

import (
	"fmt"
	"time"
)

// Daily bonus: 100 * 2^(streak-1), streak cycling 1..5 so the multiplier tops
// out at 1600 XP on day five and wraps back to 100.
const (
	DailyBonusBase = 100
	StreakCycle    = 5
)

// DefaultBoostXP is the reward for a social-share viral boost when the
// project does not configure its own amount.
const DefaultBoostXP = 50

// NextStreak advances a streak through the 1..5 cycle.
func NextStreak(current int) int {
	if current <= 0 {
		return 1
	}
	return current%StreakCycle + 1
}

// DailyBonus returns the bonus XP for a claim at the given streak value.
func DailyBonus(streak int) int64 {
	if streak < 1 {
		streak = 1
	}
	if streak > StreakCycle {
		streak = StreakCycle
	}
	return int64(DailyBonusBase) << (streak - 1)
}

// ClaimedToday reports whether last falls on the same UTC calendar day as now.
// Calendar-day equality, not elapsed hours.
func ClaimedToday(last *time.Time, now time.Time) bool {
	if last == nil {
		return false
	}
	return UTCDayStamp(*last) == UTCDayStamp(now)
}

// ClaimPeriod is the leaderboard reward window.
type ClaimPeriod string

const (
	PeriodDaily  ClaimPeriod = "daily"
	PeriodWeekly ClaimPeriod = "weekly"
)

// rankRewards is the flat daily reward table for leaderboard ranks 1..10.
var rankRewards = [11]int64{0, 3000, 1500, 1000, 700, 600, 500, 400, 300, 200, 100}

// LeaderboardReward returns the reward for a rank and period, 0 when the rank
// is outside the top 10. Weekly rewards are five times the daily figure.
func LeaderboardReward(rank int, period ClaimPeriod) int64 {
	if rank < 1 || rank > 10 {
		return 0
	}
	amount := rankRewards[rank]
	if period == PeriodWeekly {
		amount *= 5
	}
	return amount
}

// WindowStamp identifies the claim window for a period: the UTC day stamp for
// daily, "YYYY-Www" for weekly (ISO week, boundary Monday 00:00 UTC).
func WindowStamp(period ClaimPeriod, t time.Time) string {
	if period == PeriodWeekly {
		year, week := t.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return UTCDayStamp(t)
}
