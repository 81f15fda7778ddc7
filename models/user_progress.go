package models

import "time"

// UserProgress tracks experience and level per player (denormalized for performance)
type UserProgress struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	PlayerID uint   `gorm:"uniqueIndex;not null" json:"player_id"`

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Rank    int   `json:"rank" gorm:"default:1"` // Bronze(1)→Silver(2)→Gold(3)→Platinum(4)→Diamond(5)

	// Activity counters
	TotalMatches int64 `json:"total_matches" gorm:"default:0"`
	Wins         int64 `json:"wins" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}
