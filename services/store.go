package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"pong-arena/models"
	"pong-arena/physics"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence collaborator the recorder writes through.
type Store interface {
	CreateGameRecord(id string, players [2]uint, t GameType, challenge bool) (string, error)
	UpdateGameRecord(id string, score [2]int, duration time.Duration, winnerID *uint) error
	CancelGameRecord(id string) error
	RecordPlayerStats(playerID uint, gameID string, stats physics.PlayerStats) error
	UpdatePlayerPresence(playerID uint, status Presence) error
	UpdatePlayerExperience(playerID uint, own, opp int, winnerID *uint) (int64, error)
}

// BlockChecker answers whether either player blocked the other.
type BlockChecker interface {
	IsBlocked(a, b uint) (bool, error)
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Migrate() error {
	return s.DB.AutoMigrate(
		&models.GameRecord{},
		&models.PlayerStat{},
		&models.UserProgress{},
		&models.UserPresence{},
		&models.Block{},
	)
}

func (s *GormStore) CreateGameRecord(id string, players [2]uint, t GameType, challenge bool) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	rec := models.GameRecord{
		ID:        id,
		GameType:  string(t),
		Player1ID: players[0],
		Player2ID: players[1],
		Challenge: challenge,
		Status:    models.GameStatusCreated,
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("create game record %s: %w", id, err)
	}
	return rec.ID, nil
}

func (s *GormStore) UpdateGameRecord(id string, score [2]int, duration time.Duration, winnerID *uint) error {
	now := time.Now()
	res := s.DB.Model(&models.GameRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"score1":      score[0],
		"score2":      score[1],
		"duration_ms": duration.Milliseconds(),
		"winner_id":   winnerID,
		"status":      models.GameStatusFinished,
		"finished_at": &now,
	})
	if res.Error != nil {
		return fmt.Errorf("update game record %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("game record %s", id)
	}
	return nil
}

func (s *GormStore) CancelGameRecord(id string) error {
	now := time.Now()
	err := s.DB.Model(&models.GameRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      models.GameStatusCancelled,
		"finished_at": &now,
	}).Error
	if err != nil {
		return fmt.Errorf("cancel game record %s: %w", id, err)
	}
	return nil
}

func (s *GormStore) RecordPlayerStats(playerID uint, gameID string, stats physics.PlayerStats) error {
	row := models.PlayerStat{
		ID:        uuid.NewString(),
		GameID:    gameID,
		PlayerID:  playerID,
		Points:    stats.Points,
		Bounces:   stats.Bounces,
		Teleports: stats.Teleports,
		MaxSpeed:  stats.MaxSpeed,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("record stats for player %d: %w", playerID, err)
	}
	return nil
}

func (s *GormStore) UpdatePlayerPresence(playerID uint, status Presence) error {
	row := models.UserPresence{PlayerID: playerID, Status: string(status)}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error
}

// UpdatePlayerExperience applies the match delta, bumps the counters and
// levels the player up, all inside one transaction. The delta follows the
// score; the win counter follows the recorded winner, which differs on a
// forfeit.
func (s *GormStore) UpdatePlayerExperience(playerID uint, own, opp int, winnerID *uint) (int64, error) {
	delta := ExperienceDelta(own, opp)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.UserProgress
		err := tx.Where("player_id = ?", playerID).First(&prog).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prog = models.UserProgress{ID: uuid.NewString(), PlayerID: playerID, Level: 1, Rank: 1}
		} else if err != nil {
			return err
		}

		prog.TotalXP += delta
		prog.TotalMatches++
		if winnerID != nil && *winnerID == playerID {
			prog.Wins++
		}

		now := time.Now()
		if level := LevelForXP(prog.TotalXP); level > prog.Level {
			prog.Level = level
			prog.LastLevelUpAt = &now
		}
		if rank := determineRank(prog.Level); rank > prog.Rank {
			prog.Rank = rank
			prog.LastRankUpAt = &now
		}

		if err := tx.Save(&prog).Error; err != nil {
			return err
		}
		log.Printf("🎮 XP Awarded: player %d → +%d (XP=%d, Lvl=%d, Rank=%d)",
			playerID, delta, prog.TotalXP, prog.Level, prog.Rank)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update experience for player %d: %w", playerID, err)
	}
	return delta, nil
}

func (s *GormStore) IsBlocked(a, b uint) (bool, error) {
	var n int64
	err := s.DB.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) Progress(playerID uint) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.Where("player_id = ?", playerID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("no progress for player %d", playerID)
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// RecentGames returns the latest games of a player, newest first.
func (s *GormStore) RecentGames(playerID uint, limit int) ([]models.GameRecord, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var games []models.GameRecord
	err := s.DB.Where("player1_id = ? OR player2_id = ?", playerID, playerID).
		Preload("Stats").
		Order("created_at DESC").
		Limit(limit).
		Find(&games).Error
	return games, err
}
