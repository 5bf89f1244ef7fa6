package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tally/voteboard/internal/config"
	"tally/voteboard/internal/handler/middleware"
	"tally/voteboard/pkg/response"
)

// SetupRouter builds the engine. metricsHandler may be nil.
func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	voteHandler *VoteHandler,
	metricsHandler http.Handler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", Health)

	if metricsHandler != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(metricsHandler))
	}

	// Voting
	r.GET("/get-vote", voteHandler.GetVote)
	r.POST("/upvote", voteHandler.Upvote)
	r.POST("/downvote", voteHandler.Downvote)

	// Administrative, never gated by the voting flag
	r.POST("/reset", voteHandler.Reset)
	r.POST("/toggle-voting", voteHandler.ToggleVoting)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not Found")
	})

	return r
}
