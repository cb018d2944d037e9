package handlers

import (
	"net/http"

	"quizbank-backend/service"
	"quizbank-backend/topics"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the topic table and exam assembly
type CatalogHandler struct {
	tables           topics.Tables
	blueprintService *service.BlueprintService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(tables topics.Tables, blueprintService *service.BlueprintService) *CatalogHandler {
	return &CatalogHandler{
		tables:           tables,
		blueprintService: blueprintService,
	}
}

// ListTopics handles GET /api/topics
func (h *CatalogHandler) ListTopics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"topics": h.tables.Topics,
			"rules":  h.tables.Rules(),
		},
	})
}

// AssembleExam handles POST /api/exams/blueprint
func (h *CatalogHandler) AssembleExam(c *gin.Context) {
	var req service.AssembleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "INVALID_REQUEST", err.Error())
			return
		}
	}

	result, err := h.blueprintService.Assemble(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
