package models

import "time"

// UserPresence mirrors the engine's view of a player so other services can
// read it without talking to the engine.
type UserPresence struct {
	PlayerID  uint      `gorm:"primaryKey;autoIncrement:false" json:"player_id"`
	Status    string    `gorm:"type:varchar(16);not null" json:"status"` // offline, online, inGame
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Block is owned by the social service; the engine only reads it.
type Block struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID uint      `gorm:"index:idx_block_pair,unique;not null" json:"blocker_id"`
	BlockedID uint      `gorm:"index:idx_block_pair,unique;not null" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
