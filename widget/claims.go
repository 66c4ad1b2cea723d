package widget

import (
	"context"
	"errors"

	"quest-widget-system/progression"
)

// ErrClaimInFlight guards claim buttons against double-clicks while a
// request is outstanding.
var ErrClaimInFlight = errors.New("claim already in progress")

// ClaimDaily claims the daily streak bonus. Remote sessions go through the
// atomic server RPC and mirror its result; local sessions apply the same
// rules against cached state. Either way the streak advances one step and
// wraps after five, and a second claim inside the same UTC day is rejected.
func (e *Engine) ClaimDaily(ctx context.Context) (*DailyClaimResult, error) {
	e.mu.Lock()
	if e.claimInFlight {
		e.mu.Unlock()
		return nil, ErrClaimInFlight
	}
	now := e.now()
	if progression.ClaimedToday(e.lastClaim, now) {
		e.mu.Unlock()
		return &DailyClaimResult{Success: false, NewTotalXP: e.xp, NewStreak: e.streak, Message: "already claimed today"}, nil
	}
	e.claimInFlight = true
	remote := e.remote
	userID := e.userID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.claimInFlight = false
		e.mu.Unlock()
	}()

	if remote {
		result, err := e.api.ClaimDaily(ctx, userID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if result.Success {
			delta := result.NewTotalXP - e.xp
			e.xp = result.NewTotalXP
			if delta > 0 {
				e.globalXP += delta
			}
			e.streak = result.NewStreak
			t := e.now()
			e.lastClaim = &t
			e.saveSnapshotLocked()
		}
		e.mu.Unlock()
		return result, nil
	}

	e.mu.Lock()
	newStreak := progression.NextStreak(e.streak)
	bonus := progression.DailyBonus(newStreak)
	e.streak = newStreak
	e.xp += bonus
	e.globalXP += bonus
	t := e.now()
	e.lastClaim = &t
	e.saveSnapshotLocked()
	result := &DailyClaimResult{Success: true, NewTotalXP: e.xp, NewStreak: newStreak, Bonus: bonus}
	e.mu.Unlock()
	return result, nil
}

// ClaimLeaderboardReward claims the rank reward for the current window. The
// reward table and windowing live server-side, so this is remote-only: a
// draft/offline session has no leaderboard to rank on.
func (e *Engine) ClaimLeaderboardReward(ctx context.Context, period progression.ClaimPeriod) (*LeaderboardClaimResult, error) {
	e.mu.Lock()
	if e.lbClaimInFlight {
		e.mu.Unlock()
		return nil, ErrClaimInFlight
	}
	if !e.remote {
		e.mu.Unlock()
		return nil, errors.New("leaderboard rewards need a published project")
	}
	e.lbClaimInFlight = true
	userID := e.userID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.lbClaimInFlight = false
		e.mu.Unlock()
	}()

	result, err := e.api.ClaimLeaderboard(ctx, userID, string(period))
	if err != nil {
		return nil, err
	}
	if result.Success {
		// The server awarded the XP; mirror it locally without a write-back.
		e.mu.Lock()
		e.xp += result.Reward
		e.globalXP += result.Reward
		e.saveSnapshotLocked()
		e.mu.Unlock()
	}
	return result, nil
}

// ShareBoost awards the social-share viral boost, once per platform per UTC
// day. granted=false means this platform was already used today.
func (e *Engine) ShareBoost(ctx context.Context, platform string) (bool, error) {
	if platform == "" {
		return false, errors.New("platform is required")
	}
	e.mu.Lock()
	e.rollSharedDayLocked()
	if _, used := e.shared[platform]; used {
		e.mu.Unlock()
		return false, nil
	}
	remote := e.remote
	userID := e.userID
	e.mu.Unlock()

	if remote {
		granted, err := e.api.RecordBoost(ctx, userID, platform, progression.DefaultBoostXP)
		if err != nil {
			return false, err
		}
		e.mu.Lock()
		e.shared[platform] = struct{}{}
		if granted {
			// Server-side award, local mirror only.
			e.xp += progression.DefaultBoostXP
			e.globalXP += progression.DefaultBoostXP
		}
		e.saveSnapshotLocked()
		e.mu.Unlock()
		return granted, nil
	}

	e.mu.Lock()
	e.shared[platform] = struct{}{}
	e.xp += progression.DefaultBoostXP
	e.globalXP += progression.DefaultBoostXP
	e.saveSnapshotLocked()
	e.mu.Unlock()
	return true, nil
}
