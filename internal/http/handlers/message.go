package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/http/response"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

type MessageHandler struct {
	log           *logger.Logger
	orch          services.Orchestrator
	maxImageBytes int64
}

func NewMessageHandler(log *logger.Logger, orch services.Orchestrator, maxImageBytes int64) *MessageHandler {
	return &MessageHandler{
		log:           log.With("handler", "MessageHandler"),
		orch:          orch,
		maxImageBytes: maxImageBytes,
	}
}

// POST /api/users/:id/messages
// body: { "content": "..." }
func (h *MessageHandler) IngestText(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.orch.Ingest(c.Request.Context(), c.Param("id"), services.TextInput(req.Content))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	respondIngested(c, res)
}

// POST /api/users/:id/screenshots
// multipart field "image", or a raw image body.
func (h *MessageHandler) IngestScreenshot(c *gin.Context) {
	data, contentType, err := readImage(c, h.maxImageBytes)
	if err != nil {
		respondImageError(c, err)
		return
	}
	res, err := h.orch.Ingest(c.Request.Context(), c.Param("id"), services.ImageInput(data, contentType))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if res.Degraded {
		h.log.Warn("Screenshot ingested without text", "user_id", c.Param("id"), "content_type", contentType)
	}
	respondIngested(c, res)
}

// POST /api/extract-text
// Returns the OCR text without touching any conversation.
func (h *MessageHandler) ExtractText(c *gin.Context) {
	data, contentType, err := readImage(c, h.maxImageBytes)
	if err != nil {
		respondImageError(c, err)
		return
	}
	text, err := h.orch.ExtractText(c.Request.Context(), data, contentType)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"text": text})
}

func respondIngested(c *gin.Context, res services.IngestResult) {
	response.RespondCreated(c, gin.H{
		"message":  res.Message,
		"count":    res.Count,
		"degraded": res.Degraded,
	})
}
