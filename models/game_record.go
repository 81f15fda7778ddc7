package models

import "time"

const (
	GameStatusCreated   = "created"
	GameStatusFinished  = "finished"
	GameStatusCancelled = "cancelled"
)

// GameRecord is the persisted trace of one session. ID is the session id.
type GameRecord struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	GameType  string `gorm:"type:varchar(32);index;not null" json:"game_type"`
	Player1ID uint   `gorm:"index;not null" json:"player1_id"`
	Player2ID uint   `gorm:"index;not null" json:"player2_id"`
	Challenge bool   `gorm:"default:false" json:"challenge"`

	Score1     int   `gorm:"default:0" json:"score1"`
	Score2     int   `gorm:"default:0" json:"score2"`
	DurationMs int64 `gorm:"default:0" json:"duration_ms"`
	WinnerID   *uint `gorm:"index" json:"winner_id,omitempty"` // nil = tie, cancelled or still running

	Status     string     `gorm:"type:varchar(16);index;default:'created'" json:"status"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Stats []PlayerStat `gorm:"foreignKey:GameID" json:"stats,omitempty"`

	Timestamps
}
