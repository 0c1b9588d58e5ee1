package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/http/response"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

type UserHandler struct {
	log  *logger.Logger
	orch services.Orchestrator
}

func NewUserHandler(log *logger.Logger, orch services.Orchestrator) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), orch: orch}
}

// PUT /api/users/:id
// body: { "personality_type": "INTJ" | "" , "is_member": true }
// An empty personality_type clears it; absent fields are left unchanged.
func (h *UserHandler) UpsertProfile(c *gin.Context) {
	var req struct {
		PersonalityType *string `json:"personality_type"`
		IsMember        *bool   `json:"is_member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var upd user.ProfileUpdate
	if req.PersonalityType != nil {
		p := user.PersonalityType(strings.ToUpper(strings.TrimSpace(*req.PersonalityType)))
		upd.PersonalityType = &p
	}
	upd.IsMember = req.IsMember

	u, err := h.orch.UpsertProfile(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.orch.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// GET /api/users/:id/quota
func (h *UserHandler) GetQuota(c *gin.Context) {
	st, err := h.orch.QuotaStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, st)
}

// GET /api/users/:id/conversation
func (h *UserHandler) GetConversation(c *gin.Context) {
	id := c.Param("id")
	msgs, err := h.orch.GetConversation(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"user_id":  id,
		"messages": msgs,
		"count":    len(msgs),
	})
}
