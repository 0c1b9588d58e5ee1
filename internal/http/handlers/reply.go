package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/http/response"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

type ReplyHandler struct {
	log  *logger.Logger
	orch services.Orchestrator
}

func NewReplyHandler(log *logger.Logger, orch services.Orchestrator) *ReplyHandler {
	return &ReplyHandler{log: log.With("handler", "ReplyHandler"), orch: orch}
}

// POST /api/users/:id/replies
// body: { "message": "..." }
func (h *ReplyHandler) GenerateReply(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.orch.GenerateReply(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	body := gin.H{
		"replies":  res.Replies,
		"analysis": res.Analysis,
	}
	if !res.Permit.Unlimited {
		body["remaining"] = res.Permit.Remaining
	}
	response.RespondOK(c, body)
}

// POST /api/analyze
// body: { "content": "..." }
func (h *ReplyHandler) Analyze(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	a, err := h.orch.Analyze(c.Request.Context(), req.Content)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}
