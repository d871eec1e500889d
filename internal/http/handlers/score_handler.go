package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/littypicky-backend/internal/http/dto"
	"github.com/ignatzorin/littypicky-backend/internal/http/response"
	"github.com/ignatzorin/littypicky-backend/internal/service"
)

type ScoreHandler struct {
	scoring *service.ScoringService
}

func NewScoreHandler(scoring *service.ScoringService) *ScoreHandler {
	return &ScoreHandler{scoring: scoring}
}

// Me GET /scores/me
func (h *ScoreHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	agg, err := h.scoring.GetUserScore(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToScoreResponse(agg, h.scoring.Rules().MinClearsToVerify))
}

// History GET /scores/me/history?limit=
func (h *ScoreHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	events, err := h.scoring.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, dto.ToScoreEventResponses(events), len(events))
}
