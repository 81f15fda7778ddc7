package services

import "math"

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForXP walks the curve until the accumulated requirement exceeds total.
func LevelForXP(total int64) int {
	level := 1
	need := xpForNextLevel(level)
	for total >= need {
		level++
		need += xpForNextLevel(level)
	}
	return level
}

// RankThresholds: levels required before rank-up
var RankThresholds = map[int]int{ // rank → min level
	1: 1,  // Bronze (start)
	2: 5,  // Silver
	3: 10, // Gold
	4: 20, // Platinum
	5: 40, // Diamond
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

// ExperienceDelta is what one match is worth to a player: a win pays a flat
// 20 plus twice the margin, a loss pays the points scored with a floor of 2.
func ExperienceDelta(own, opp int) int64 {
	if own > opp {
		return int64(20 + 2*(own-opp))
	}
	return int64(max(2, own))
}
