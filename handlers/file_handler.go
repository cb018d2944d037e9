package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"quizbank-backend/importer"
	"quizbank-backend/service"

	"github.com/gin-gonic/gin"
)

const (
	templateFilename = "soru_sablonu.xlsx"
	xlsxMimeType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileHandler handles HTTP requests for import files
type FileHandler struct {
	importService *service.ImportService
}

// NewFileHandler creates a new file handler
func NewFileHandler(importService *service.ImportService) *FileHandler {
	return &FileHandler{importService: importService}
}

// GetTemplate handles GET /api/imports/template
func (h *FileHandler) GetTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TEMPLATE_FAILED",
				"message": fmt.Sprintf("Failed to build template: %v", err),
			},
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", templateFilename))
	c.Data(http.StatusOK, xlsxMimeType, buf.Bytes())
}

// GetImportFile handles GET /api/imports/:id/file
func (h *FileHandler) GetImportFile(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	reader, file, err := h.importService.OpenFile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, nil)
}
