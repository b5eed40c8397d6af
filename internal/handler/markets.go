package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pointstake/internal/models"
	"pointstake/internal/repository"
	"pointstake/internal/service"
)

type MarketsHandler struct {
	Store   repository.Repository
	Catalog *service.CatalogService
}

func (h *MarketsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/markets", h.list)
	group.GET("/markets/eligible", h.eligible)
	group.GET("/markets/:id", h.get)
	group.GET("/markets/:id/snapshots", h.snapshots)
	group.GET("/decisions", h.decisions)
}

func (h *MarketsHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	markets, err := h.Store.SearchMarkets(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, markets, map[string]any{"count": len(markets)})
}

type eligibleMarketRow struct {
	Market   models.Market    `json:"market"`
	Decision *models.Decision `json:"decision,omitempty"`
}

func (h *MarketsHandler) eligible(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	markets, err := h.Catalog.EligibleMarkets(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	rows := make([]eligibleMarketRow, 0, len(markets))
	for _, m := range markets {
		decision, err := h.Store.GetDecisionByMarketID(c.Request.Context(), m.ID)
		if err != nil {
			ServiceError(c, err)
			return
		}
		rows = append(rows, eligibleMarketRow{Market: m, Decision: decision})
	}
	Ok(c, rows, map[string]any{"count": len(rows)})
}

func (h *MarketsHandler) get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	market, err := h.Store.GetMarketByID(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if market == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	decision, err := h.Store.GetDecisionByMarketID(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{
		"market":   market,
		"decision": decision,
	}, nil)
}

func (h *MarketsHandler) snapshots(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	snapshots, err := h.Store.ListPriceSnapshots(c.Request.Context(), id, limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, snapshots, map[string]any{"count": len(snapshots)})
}

func (h *MarketsHandler) decisions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	decisions, err := h.Store.ListRecentDecisions(c.Request.Context(), limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, decisions, map[string]any{"count": len(decisions)})
}
