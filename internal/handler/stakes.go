package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pointstake/internal/auth"
	"pointstake/internal/service"
)

type StakesHandler struct {
	Tokens *auth.TokenIssuer
	Ledger *service.LedgerService
}

func (h *StakesHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/stakes", AuthRequired(h.Tokens))
	group.POST("", h.place)
	group.GET("", h.list)
}

type placeStakeRequest struct {
	MarketID uint64 `json:"market_id" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Stake    int64  `json:"stake" binding:"required"`
}

func (h *StakesHandler) place(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		Error(c, http.StatusUnauthorized, "missing claims", nil)
		return
	}
	var req placeStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "market_id, side and stake are required", nil)
		return
	}

	position, err := h.Ledger.PlaceStake(c.Request.Context(), claims.UserID, req.MarketID, req.Side, req.Stake)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, position, nil)
}

func (h *StakesHandler) list(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		Error(c, http.StatusUnauthorized, "missing claims", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	positions, err := h.Ledger.Store.ListPositionsByUser(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, positions, map[string]any{"count": len(positions)})
}
