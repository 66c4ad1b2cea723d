package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPFloorForLevel(t *testing.T) {
	assert.EqualValues(t, 0, XPFloorForLevel(1))
	assert.EqualValues(t, 2000, XPFloorForLevel(2))
	assert.EqualValues(t, 0, XPFloorForLevel(0))
	assert.EqualValues(t, 0, XPFloorForLevel(-3))

	// Floors are strictly increasing.
	for level := 1; level < 200; level++ {
		if XPFloorForLevel(level+1) <= XPFloorForLevel(level) {
			t.Fatalf("floor not increasing at level %d", level)
		}
	}
}

func TestLevelForXP_RoundTrip(t *testing.T) {
	// exact inverse: the floor of every level maps back to that level, and
	// one XP short of it maps to the level below.
	for level := 1; level <= 200; level++ {
		floor := XPFloorForLevel(level)
		assert.Equal(t, level, LevelForXP(floor), "at floor of level %d (xp=%d)", level, floor)
		if level > 1 {
			assert.Equal(t, level-1, LevelForXP(floor-1), "just below floor of level %d", level)
		}
	}
}

func TestLevelForXP_Bounds(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(-500))
	assert.Equal(t, 1, LevelForXP(1999))
	assert.Equal(t, 2, LevelForXP(2000))
}

func TestLevelProgress(t *testing.T) {
	assert.InDelta(t, 0.0, LevelProgress(0), 1e-9)
	assert.InDelta(t, 0.0, LevelProgress(XPFloorForLevel(5)), 1e-9)

	p := LevelProgress(XPFloorForLevel(5) + 1)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)

	p = LevelProgress(XPFloorForLevel(6) - 1)
	assert.Less(t, p, 1.0)
}

func TestTierForLevel(t *testing.T) {
	assert.Equal(t, "Rookie", TierForLevel(1).Name)
	assert.Equal(t, "Rookie", TierForLevel(4).Name)
	assert.Equal(t, "Bronze Explorer", TierForLevel(5).Name)
	assert.Equal(t, "Silver Scout", TierForLevel(10).Name)
	assert.Equal(t, "Gold Adventurer", TierForLevel(29).Name)
	assert.Equal(t, "Platinum Voyager", TierForLevel(30).Name)
	assert.Equal(t, "Diamond Conqueror", TierForLevel(49).Name)
	assert.Equal(t, "Legend", TierForLevel(50).Name)
	assert.Equal(t, "Legend", TierForLevel(120).Name)

	// Tier follows global XP, not per-project XP, so it only needs raw XP.
	assert.Equal(t, "Rookie", TierForXP(0).Name)
	assert.Equal(t, "Bronze Explorer", TierForXP(XPFloorForLevel(5)).Name)
}
