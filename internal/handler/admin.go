package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pointstake/internal/service"
)

type AdminHandler struct {
	AdminKey   string
	Catalog    *service.CatalogService
	Policy     *service.PolicyService
	Refresher  *service.RefresherService
	Settlement *service.SettlementService
	Ledger     *service.LedgerService
}

func (h *AdminHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/admin", AdminOnly(h.AdminKey))
	group.POST("/sync", h.sync)
	group.POST("/decide", h.decide)
	group.POST("/refresh", h.refresh)
	group.POST("/settle", h.settleCycle)
	group.POST("/markets/:id/settle", h.settleMarket)
	group.POST("/users/:id/points", h.adjustPoints)
	group.GET("/stats", h.stats)
}

func (h *AdminHandler) sync(c *gin.Context) {
	result, err := h.Catalog.SyncMarkets(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *AdminHandler) decide(c *gin.Context) {
	result, err := h.Policy.RunDecisionCycle(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *AdminHandler) refresh(c *gin.Context) {
	result, err := h.Refresher.RefreshOpenPositionPrices(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *AdminHandler) settleCycle(c *gin.Context) {
	result, err := h.Settlement.RunSettlementCycle(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, result, nil)
}

// settleMarket asks the settlement engine to resolve one market against the
// venue's outcome. settled=false covers a missing or already resolved market
// and a market the venue has not finalized yet.
func (h *AdminHandler) settleMarket(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	settled, err := h.Settlement.SettleMarket(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"settled": settled}, nil)
}

type adjustPointsRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

func (h *AdminHandler) adjustPoints(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid user id", nil)
		return
	}
	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "delta is required", nil)
		return
	}
	if err := h.Ledger.AdjustPoints(c.Request.Context(), id, req.Delta, req.Reason); err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"user_id": id, "delta": req.Delta}, nil)
}

func (h *AdminHandler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := h.Ledger.Store.CountUsers(ctx)
	if err != nil {
		ServiceError(c, err)
		return
	}
	markets, err := h.Ledger.Store.CountMarkets(ctx)
	if err != nil {
		ServiceError(c, err)
		return
	}
	openPositions, err := h.Ledger.Store.CountOpenPositions(ctx)
	if err != nil {
		ServiceError(c, err)
		return
	}
	circulating, err := h.Ledger.Store.SumUserPoints(ctx)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{
		"users":              users,
		"markets":            markets,
		"open_positions":     openPositions,
		"points_circulating": circulating,
	}, nil)
}
