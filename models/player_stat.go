package models

// PlayerStat holds one player's counters for one game.
type PlayerStat struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	GameID   string `gorm:"type:uuid;index;not null" json:"game_id"`
	PlayerID uint   `gorm:"index;not null" json:"player_id"`

	Points    int     `json:"points" gorm:"default:0"`
	Bounces   int     `json:"bounces" gorm:"default:0"`
	Teleports int     `json:"teleports" gorm:"default:0"`
	MaxSpeed  float64 `json:"max_speed" gorm:"default:0"`

	Timestamps
}
