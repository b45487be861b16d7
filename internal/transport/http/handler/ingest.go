package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/transport/http/response"
)

type IngestHandler struct {
	ingestService *app.IngestService
}

func NewIngestHandler(ingestService *app.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Process rebuilds the session's index from its current files.
func (h *IngestHandler) Process(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.ingestService.Process(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		case errors.Is(err, app.ErrNoContent):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrLoad):
			response.Error(c, http.StatusUnprocessableEntity, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmbedding):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "process files failed")
		}
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "processed": true})
}
