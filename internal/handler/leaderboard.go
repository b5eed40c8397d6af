package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"pointstake/internal/service"
)

type LeaderboardHandler struct {
	Ledger *service.LedgerService
}

func (h *LeaderboardHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/leaderboard", h.leaderboard)
}

type leaderboardRow struct {
	Rank      int    `json:"rank"`
	Wallet    string `json:"wallet"`
	Points    int64  `json:"points"`
	TotalBets int64  `json:"total_bets"`
	TotalWins int64  `json:"total_wins"`
}

func (h *LeaderboardHandler) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	users, err := h.Ledger.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	rows := make([]leaderboardRow, 0, len(users))
	for i, u := range users {
		rows = append(rows, leaderboardRow{
			Rank:      i + 1,
			Wallet:    u.Wallet,
			Points:    u.Points,
			TotalBets: u.TotalBets,
			TotalWins: u.TotalWins,
		})
	}
	Ok(c, rows, map[string]any{"count": len(rows)})
}
