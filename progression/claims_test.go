package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextStreak(t *testing.T) {
	assert.Equal(t, 1, NextStreak(0))
	assert.Equal(t, 1, NextStreak(-2))
	assert.Equal(t, 2, NextStreak(1))
	assert.Equal(t, 3, NextStreak(2))
	assert.Equal(t, 4, NextStreak(3))
	assert.Equal(t, 5, NextStreak(4))
	// day five wraps back to the start of the cycle
	assert.Equal(t, 1, NextStreak(5))
}

func TestDailyBonus(t *testing.T) {
	assert.EqualValues(t, 100, DailyBonus(1))
	assert.EqualValues(t, 200, DailyBonus(2))
	assert.EqualValues(t, 400, DailyBonus(3))
	assert.EqualValues(t, 800, DailyBonus(4))
	assert.EqualValues(t, 1600, DailyBonus(5))

	// out-of-range values clamp to the cycle
	assert.EqualValues(t, 100, DailyBonus(0))
	assert.EqualValues(t, 1600, DailyBonus(9))
}

func TestClaimedToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)

	assert.False(t, ClaimedToday(nil, now))

	sameDay := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.True(t, ClaimedToday(&sameDay, now))

	// 23:50 the previous day is only fifteen minutes earlier but a
	// different calendar day, so the claim has re-armed.
	lastNight := time.Date(2026, 3, 9, 23, 50, 0, 0, time.UTC)
	assert.False(t, ClaimedToday(&lastNight, now))

	// comparison is in UTC regardless of the stored zone
	est := time.FixedZone("EST", -5*3600)
	lateEST := time.Date(2026, 3, 9, 20, 0, 0, 0, est) // 2026-03-10 01:00 UTC
	assert.True(t, ClaimedToday(&lateEST, now))
}

func TestLeaderboardReward(t *testing.T) {
	assert.EqualValues(t, 3000, LeaderboardReward(1, PeriodDaily))
	assert.EqualValues(t, 1500, LeaderboardReward(2, PeriodDaily))
	assert.EqualValues(t, 100, LeaderboardReward(10, PeriodDaily))

	assert.EqualValues(t, 0, LeaderboardReward(11, PeriodDaily))
	assert.EqualValues(t, 0, LeaderboardReward(0, PeriodDaily))
	assert.EqualValues(t, 0, LeaderboardReward(-1, PeriodWeekly))

	assert.EqualValues(t, 15000, LeaderboardReward(1, PeriodWeekly))
	assert.EqualValues(t, 500, LeaderboardReward(10, PeriodWeekly))
}

func TestWindowStamp(t *testing.T) {
	ts := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-02", WindowStamp(PeriodDaily, ts))
	// Jan 2 2026 falls in ISO week 1 of 2026.
	assert.Equal(t, "2026-W01", WindowStamp(PeriodWeekly, ts))

	// Jan 1 2027 belongs to ISO week 53 of 2026.
	ny := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-W53", WindowStamp(PeriodWeekly, ny))
}
