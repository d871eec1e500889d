package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/littypicky-backend/internal/http/dto"
	"github.com/ignatzorin/littypicky-backend/internal/http/response"
	"github.com/ignatzorin/littypicky-backend/internal/usecase/verification"
	"github.com/ignatzorin/littypicky-backend/internal/validation"
)

// VerificationHandler принимает голоса сообщества за уборку.
type VerificationHandler struct {
	cast *verification.CastVoteUseCase
	list *verification.ListVotesUseCase
}

func NewVerificationHandler(cast *verification.CastVoteUseCase, list *verification.ListVotesUseCase) *VerificationHandler {
	return &VerificationHandler{cast: cast, list: list}
}

// Vote POST /reports/:id/verify
func (h *VerificationHandler) Vote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "is_positive обязателен")
		return
	}
	if err := validation.ValidateComment(req.Comment); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.cast.Execute(c.Request.Context(), verification.CastVoteInput{
		ReportID:   reportID,
		VoterID:    userID,
		IsPositive: *req.IsPositive,
		Comment:    req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CastVoteResponse{
		Vote:          dto.ToVoteResponse(result.Vote),
		Report:        dto.ToReportResponse(result.Report),
		VerifiedNow:   result.VerifiedNow,
		PointsAwarded: result.PointsAwarded,
	})
}

// List GET /reports/:id/verifications
func (h *VerificationHandler) List(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	votes, err := h.list.Execute(c.Request.Context(), reportID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, dto.ToVoteResponses(votes), len(votes))
}
