package handler

import (
	"net/http"

	"github.com/gdugdh24/nearmatch-backend/internal/usecase/conversation"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	conversationUseCase *conversation.ConversationUseCase
}

func NewMessageHandler(conversationUseCase *conversation.ConversationUseCase) *MessageHandler {
	return &MessageHandler{
		conversationUseCase: conversationUseCase,
	}
}

// ListMessages handles GET /matches/:id/messages
// @Summary List messages
// @Description Oldest first. Opening the thread marks it read.
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "Match ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 50)"
// @Success 200 {array} domain.Message
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /matches/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", conversation.DefaultPageSize)
	if !ok {
		return
	}

	messages, err := h.conversationUseCase.ListMessages(c.Request.Context(), matchID, userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage handles POST /matches/:id/messages
// @Summary Send a message
// @Tags messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Match ID"
// @Param request body conversation.SendMessageRequest true "Message"
// @Success 201 {object} domain.Message
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /matches/{id}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req conversation.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}

	msg, err := h.conversationUseCase.Send(c.Request.Context(), matchID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkRead handles PUT /matches/:id/messages/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}

	n, err := h.conversationUseCase.MarkRead(c.Request.Context(), matchID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// DeleteMessage handles DELETE /matches/:id/messages/:messageId
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	matchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageId")
	if !ok {
		return
	}

	if err := h.conversationUseCase.DeleteMessage(c.Request.Context(), matchID, messageID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "message deleted"})
}

// UnreadSummary handles GET /messages/unread
func (h *MessageHandler) UnreadSummary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	summary, err := h.conversationUseCase.UnreadSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
