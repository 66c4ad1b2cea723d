package widget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quest-widget-system/progression"
)

func TestClaimDaily_StreakCycle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	e := draftEngine(t, clock, nil)
	ctx := context.Background()

	// five consecutive days walk the full streak ladder
	wantBonus := []int64{100, 200, 400, 800, 1600}
	var total int64
	for day, want := range wantBonus {
		result, err := e.ClaimDaily(ctx)
		require.NoError(t, err)
		require.True(t, result.Success, "day %d", day+1)
		assert.Equal(t, day+1, result.NewStreak)
		assert.EqualValues(t, want, result.Bonus)
		total += want
		assert.EqualValues(t, total, e.XP())
		clock.NextDay()
	}

	// day six wraps back to the start of the cycle
	result, err := e.ClaimDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewStreak)
	assert.EqualValues(t, 100, result.Bonus)
}

func TestClaimDaily_OncePerUTCDay(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 23, 50, 0, 0, time.UTC)}
	e := draftEngine(t, clock, nil)
	ctx := context.Background()

	result, err := e.ClaimDaily(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.True(t, e.DailyClaimed())

	result, err = e.ClaimDaily(ctx)
	require.NoError(t, err)
	assert.False(t, result.Success)

	// the claim re-arms at midnight UTC, not 24 hours later
	clock.Advance(20 * time.Minute)
	assert.False(t, e.DailyClaimed())
	result, err = e.ClaimDaily(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.NewStreak)
}

func TestClaimDaily_SurvivesRestart(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	e := draftEngine(t, clock, store)

	_, err := e.ClaimDaily(context.Background())
	require.NoError(t, err)

	e2 := draftEngine(t, clock, store)
	assert.True(t, e2.DailyClaimed())
	assert.Equal(t, 1, e2.Streak())
	result, err := e2.ClaimDaily(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestClaimLeaderboardReward_NeedsRemote(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	e := draftEngine(t, clock, nil)

	_, err := e.ClaimLeaderboardReward(context.Background(), progression.PeriodDaily)
	assert.Error(t, err)
}

func TestClaimDaily_RemoteMirrorsServerResult(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.xp = 200
	b.streak = 1
	b.dailyClaim = func() DailyClaimResult {
		return DailyClaimResult{Success: true, NewTotalXP: 400, NewStreak: 2, Bonus: 200}
	}

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	result, err := e.ClaimDaily(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.EqualValues(t, 400, e.XP())
	assert.Equal(t, 2, e.Streak())
	assert.True(t, e.DailyClaimed())

	// the local guard stops a second round-trip the same day
	result, err = e.ClaimDaily(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestClaimLeaderboardReward_Remote(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.lbClaim = func(period string) LeaderboardClaimResult {
		if period != string(progression.PeriodWeekly) {
			return LeaderboardClaimResult{Success: false, Message: "unexpected period"}
		}
		return LeaderboardClaimResult{Success: true, Reward: 15000, Rank: 1}
	}

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	result, err := e.ClaimLeaderboardReward(context.Background(), progression.PeriodWeekly)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.EqualValues(t, 15000, result.Reward)
	assert.EqualValues(t, 15000, e.XP())
}

func TestClaimLeaderboardReward_OutsideTopTen(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.lbClaim = func(period string) LeaderboardClaimResult {
		return LeaderboardClaimResult{Success: false, Rank: 11, Message: "rank 11 is outside the top 10"}
	}

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	result, err := e.ClaimLeaderboardReward(context.Background(), progression.PeriodDaily)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 11, result.Rank)
	assert.EqualValues(t, 0, e.XP(), "no reward outside the top 10")
}

func TestShareBoost_OncePerPlatformPerDay(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	e := draftEngine(t, clock, nil)
	ctx := context.Background()

	granted, err := e.ShareBoost(ctx, "x")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.EqualValues(t, progression.DefaultBoostXP, e.XP())
	assert.True(t, e.SharedToday("x"))

	granted, err = e.ShareBoost(ctx, "x")
	require.NoError(t, err)
	assert.False(t, granted)
	assert.EqualValues(t, progression.DefaultBoostXP, e.XP())

	// a different platform is a separate boost
	granted, err = e.ShareBoost(ctx, "discord")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.EqualValues(t, 2*progression.DefaultBoostXP, e.XP())

	// day rollover re-arms all platforms
	clock.NextDay()
	assert.False(t, e.SharedToday("x"))
	granted, err = e.ShareBoost(ctx, "x")
	require.NoError(t, err)
	assert.True(t, granted)

	_, err = e.ShareBoost(ctx, "")
	assert.Error(t, err)
}
