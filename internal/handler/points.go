package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pointstake/internal/auth"
	"pointstake/internal/service"
)

type PointsHandler struct {
	Tokens *auth.TokenIssuer
	Ledger *service.LedgerService
}

func (h *PointsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/points", AuthRequired(h.Tokens))
	group.GET("/balance", h.balance)
	group.GET("/history", h.history)
	group.POST("/checkin", h.checkin)
}

func (h *PointsHandler) balance(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		Error(c, http.StatusUnauthorized, "missing claims", nil)
		return
	}
	user, err := h.Ledger.Store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if user == nil {
		Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	ledgerSum, err := h.Ledger.Store.SumLedgerByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{
		"points":       user.Points,
		"ledger_total": ledgerSum,
		"total_bets":   user.TotalBets,
		"total_wins":   user.TotalWins,
		"streak_days":  user.StreakDays,
	}, nil)
}

func (h *PointsHandler) history(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		Error(c, http.StatusUnauthorized, "missing claims", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	entries, total, err := h.Ledger.History(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, entries, map[string]any{"total": total})
}

func (h *PointsHandler) checkin(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		Error(c, http.StatusUnauthorized, "missing claims", nil)
		return
	}
	streak, reward, err := h.Ledger.DailyCheckin(c.Request.Context(), claims.UserID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{
		"streak": streak,
		"reward": reward,
	}, nil)
}
