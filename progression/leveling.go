// Package progression holds the pure rules of the quest widget: the leveling
// curve, completion-key derivation, quiz judging, claim windows and bonus
// formulas, and the canonical verification challenge. No I/O — both the
// backend services and the embeddable widget engine import it.
package progression

import "math"

// Superlinear XP curve: level = floor((xp / K)^(1/E)) + 1.
const (
	xpCurveBase = 2000.0 // K
	xpCurveExp  = 2.2    // E
)

// XPFloorForLevel returns the cumulative XP at which the given level starts.
// Level 1 starts at 0.
func XPFloorForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Floor(xpCurveBase * math.Pow(float64(level-1), xpCurveExp)))
}

// LevelForXP maps total XP to a level >= 1. Implemented as the exact inverse
// of XPFloorForLevel (largest L with floor(L) <= xp): the analytic estimate is
// corrected against the floor table so the round-trip holds despite float
// truncation in the floor computation.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Pow(float64(xp)/xpCurveBase, 1/xpCurveExp)) + 1
	if level < 1 {
		level = 1
	}
	for XPFloorForLevel(level+1) <= xp {
		level++
	}
	for level > 1 && XPFloorForLevel(level) > xp {
		level--
	}
	return level
}

// LevelProgress returns progress within the current level, clamped to [0,1].
func LevelProgress(xp int64) float64 {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	floor := XPFloorForLevel(level)
	span := XPFloorForLevel(level+1) - floor
	if span <= 0 {
		return 1
	}
	progress := float64(xp-floor) / float64(span)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return progress
}

// Tier is a named bracket of levels with a fixed icon.
type Tier struct {
	MinLevel int    `json:"min_level"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
}

// Tiers, highest threshold first. TierForLevel scans down and returns the
// first tier whose MinLevel is satisfied, defaulting to the lowest.
var Tiers = []Tier{
	{MinLevel: 50, Name: "Legend", Icon: "👑"},
	{MinLevel: 40, Name: "Diamond Conqueror", Icon: "💎"},
	{MinLevel: 30, Name: "Platinum Voyager", Icon: "🚀"},
	{MinLevel: 20, Name: "Gold Adventurer", Icon: "🏆"},
	{MinLevel: 10, Name: "Silver Scout", Icon: "🥈"},
	{MinLevel: 5, Name: "Bronze Explorer", Icon: "🥉"},
	{MinLevel: 1, Name: "Rookie", Icon: "🌱"},
}

func TierForLevel(level int) Tier {
	for _, t := range Tiers {
		if level >= t.MinLevel {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// TierForXP is a convenience for display surfaces that hold raw XP.
func TierForXP(xp int64) Tier {
	return TierForLevel(LevelForXP(xp))
}
