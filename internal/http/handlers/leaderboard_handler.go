package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/littypicky-backend/internal/domain/entity"
	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
	"github.com/ignatzorin/littypicky-backend/internal/http/dto"
	"github.com/ignatzorin/littypicky-backend/internal/http/response"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type LeaderboardHandler struct {
	svc *service.LeaderboardService
}

func NewLeaderboardHandler(svc *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc}
}

// Global GET /leaderboards?period=weekly|monthly|all_time&limit=
func (h *LeaderboardHandler) Global(c *gin.Context) {
	h.top(c, valueobject.LeaderboardScopeGlobal, "")
}

// City GET /leaderboards/city/:city
func (h *LeaderboardHandler) City(c *gin.Context) {
	h.top(c, valueobject.LeaderboardScopeCity, c.Param("city"))
}

// Country GET /leaderboards/country/:country
func (h *LeaderboardHandler) Country(c *gin.Context) {
	h.top(c, valueobject.LeaderboardScopeCountry, c.Param("country"))
}

func (h *LeaderboardHandler) top(c *gin.Context, scope valueobject.LeaderboardScope, value string) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	period := c.Query("period")
	entries, err := h.svc.Top(c.Request.Context(), service.LeaderboardRequest{
		Scope:  scope,
		Value:  value,
		Period: period,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if period == "" {
		period = string(valueobject.LeaderboardWindowAllTime)
	}
	if entries == nil {
		entries = []entity.LeaderboardEntry{}
	}
	response.Success(c, dto.LeaderboardResponse{
		Scope:   string(scope),
		Value:   value,
		Period:  period,
		Entries: entries,
	})
}
