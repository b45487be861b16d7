package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/model"
	"docchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNoIndex):
			response.Error(c, http.StatusConflict, response.CodeNoIndex, err.Error())
		case errors.Is(err, app.ErrExecution):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}
	response.OK(c, result)
}

type historyEntry struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Citations []model.Citation `json:"citations,omitempty"`
	CreatedAt string           `json:"created_at"`
}

func (h *ChatHandler) History(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	messages, err := h.chatService.GetHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		return
	}

	entries := make([]historyEntry, 0, len(messages))
	for i := range messages {
		entries = append(entries, historyEntry{
			Role:      messages[i].Role,
			Content:   messages[i].Content,
			Citations: messages[i].CitationList(),
			CreatedAt: messages[i].CreatedAt.Format(time.RFC3339),
		})
	}
	response.OK(c, entries)
}
