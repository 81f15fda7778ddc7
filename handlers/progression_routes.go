// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"pong-arena/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(r fiber.Router, store *services.GormStore) {
	r.Get("/players/:id/progress", func(c *fiber.Ctx) error {
		player, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		prog, err := store.Progress(player)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"player_id":        prog.PlayerID,
			"xp":               prog.TotalXP,
			"level":            prog.Level,
			"rank":             prog.Rank,
			"rank_name":        rankName(prog.Rank),
			"total_matches":    prog.TotalMatches,
			"matches_won":      prog.Wins,
			"last_level_up_at": prog.LastLevelUpAt,
			"last_rank_up_at":  prog.LastRankUpAt,
		})
	})

	r.Get("/players/:id/games", func(c *fiber.Ctx) error {
		player, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		games, err := store.RecentGames(player, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"games": games})
	})
}

func rankName(rank int) string {
	switch rank {
	case 1:
		return "Bronze"
	case 2:
		return "Silver"
	case 3:
		return "Gold"
	case 4:
		return "Platinum"
	case 5:
		return "Diamond"
	default:
		if rank > 5 {
			return "Legend"
		}
		return "Bronze"
	}
}
