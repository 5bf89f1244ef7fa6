package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tally/voteboard/internal/model"
	"tally/voteboard/internal/service"
	"tally/voteboard/pkg/response"
)

type VoteHandler struct {
	voteService service.VoteService
	logger      *zap.Logger
}

func NewVoteHandler(voteService service.VoteService, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{voteService: voteService, logger: logger}
}

type VoteStatusResponse struct {
	Upvotes        int64 `json:"upvotes"`
	Downvotes      int64 `json:"downvotes"`
	IsVotingActive bool  `json:"isVotingActive"`
}

type VoteResponse struct {
	Success        bool  `json:"success"`
	Upvotes        int64 `json:"upvotes"`
	Downvotes      int64 `json:"downvotes"`
	IsVotingActive bool  `json:"isVotingActive"`
}

type ResetResponse struct {
	Success   bool  `json:"success"`
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

type ToggleVotingRequest struct {
	// Pointer so that a missing field is told apart from false.
	IsVotingActive *bool `json:"isVotingActive" binding:"required"`
}

type ToggleVotingResponse struct {
	Success        bool `json:"success"`
	IsVotingActive bool `json:"isVotingActive"`
}

type statusFallbackResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	Upvotes        int64  `json:"upvotes"`
	Downvotes      int64  `json:"downvotes"`
	IsVotingActive bool   `json:"isVotingActive"`
}

// GetVote handles GET /get-vote. On store failure it still answers with the
// zero/active defaults, alongside the 500 status.
func (h *VoteHandler) GetVote(c *gin.Context) {
	rec, err := h.voteService.GetStatus(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch votes", zap.Error(err))
		fallback := model.DefaultVoteRecord()
		c.JSON(http.StatusInternalServerError, statusFallbackResponse{
			Error:          "Failed to fetch votes",
			Upvotes:        fallback.Upvotes,
			Downvotes:      fallback.Downvotes,
			IsVotingActive: fallback.IsVotingActive,
		})
		return
	}

	response.OK(c, VoteStatusResponse{
		Upvotes:        rec.Upvotes,
		Downvotes:      rec.Downvotes,
		IsVotingActive: rec.IsVotingActive,
	})
}

// Upvote handles POST /upvote.
func (h *VoteHandler) Upvote(c *gin.Context) {
	rec, err := h.voteService.Upvote(c.Request.Context())
	h.respondVote(c, rec, err, "Failed to upvote")
}

// Downvote handles POST /downvote.
func (h *VoteHandler) Downvote(c *gin.Context) {
	rec, err := h.voteService.Downvote(c.Request.Context())
	h.respondVote(c, rec, err, "Failed to downvote")
}

func (h *VoteHandler) respondVote(c *gin.Context, rec *model.VoteRecord, err error, failure string) {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVotingDisabled):
			response.Forbidden(c, "Voting is currently disabled")
		default:
			h.logger.Error(failure, zap.Error(err))
			response.InternalError(c, failure)
		}
		return
	}

	response.OK(c, VoteResponse{
		Success:        true,
		Upvotes:        rec.Upvotes,
		Downvotes:      rec.Downvotes,
		IsVotingActive: rec.IsVotingActive,
	})
}

// Reset handles POST /reset.
func (h *VoteHandler) Reset(c *gin.Context) {
	rec, err := h.voteService.ResetCounts(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to reset votes", zap.Error(err))
		response.InternalError(c, "Failed to reset votes")
		return
	}

	response.OK(c, ResetResponse{
		Success:   true,
		Upvotes:   rec.Upvotes,
		Downvotes: rec.Downvotes,
	})
}

// ToggleVoting handles POST /toggle-voting.
func (h *VoteHandler) ToggleVoting(c *gin.Context) {
	var req ToggleVotingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "isVotingActive must be a boolean")
		return
	}

	rec, err := h.voteService.SetVotingActive(c.Request.Context(), req.IsVotingActive)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidArgument):
			response.BadRequest(c, "isVotingActive must be a boolean")
		default:
			h.logger.Error("failed to toggle voting", zap.Error(err))
			response.InternalError(c, "Failed to toggle voting")
		}
		return
	}

	response.OK(c, ToggleVotingResponse{
		Success:        true,
		IsVotingActive: rec.IsVotingActive,
	})
}
