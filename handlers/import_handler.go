package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"quizbank-backend/importer"
	"quizbank-backend/middleware"
	"quizbank-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportHandler handles HTTP requests for import sessions
type ImportHandler struct {
	importService  *service.ImportService
	maxUploadBytes int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService *service.ImportService, maxUploadBytes int64) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024 // 10MB
	}
	return &ImportHandler{
		importService:  importService,
		maxUploadBytes: maxUploadBytes,
	}
}

// StartImport handles POST /api/imports
func (h *ImportHandler) StartImport(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "MISSING_FILE", "File is required")
		return
	}

	if fileHeader.Size > h.maxUploadBytes {
		badRequest(c, "FILE_TOO_LARGE", fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxUploadBytes))
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !slices.Contains(importer.SupportedExtensions, ext) {
		badRequest(c, "UNSUPPORTED_FORMAT", "File type not allowed. Allowed types: "+strings.Join(importer.SupportedExtensions, ", "))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		badRequest(c, "FILE_TOO_LARGE", fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxUploadBytes))
		return
	}

	editor, _ := middleware.EditorFrom(c)
	result, err := h.importService.StartImport(c.Request.Context(), service.StartImportRequest{
		Filename:  filepath.Base(fileHeader.Filename),
		Data:      data,
		CreatedBy: editor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.View,
	})
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}

// candidateTarget resolves the session and candidate index of a review route
func (h *ImportHandler) candidateTarget(c *gin.Context) (*importer.Session, int, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		badRequest(c, "INVALID_INDEX", "Invalid candidate index")
		return nil, 0, false
	}
	sess, err := h.importService.Session(id)
	if err != nil {
		respondError(c, err)
		return nil, 0, false
	}
	return sess, index, true
}

func respondCandidate(c *gin.Context, sess *importer.Session, index int) {
	cand, err := sess.Candidate(index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cand,
	})
}

// GetSession handles GET /api/imports/:id
func (h *ImportHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var filter importer.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "INVALID_FILTER", err.Error())
		return
	}
	if filter.Bucket != "" && !slices.Contains(importer.Buckets, filter.Bucket) {
		badRequest(c, "INVALID_BUCKET", fmt.Sprintf("Unknown bucket %q", filter.Bucket))
		return
	}

	view, err := h.importService.View(id, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// ApproveRequest represents the request body for approving a candidate
type ApproveRequest struct {
	Force bool `json:"force"`
}

// ApproveCandidate handles POST /api/imports/:id/candidates/:index/approve
func (h *ImportHandler) ApproveCandidate(c *gin.Context) {
	sess, index, ok := h.candidateTarget(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "INVALID_REQUEST", err.Error())
			return
		}
	}

	if err := sess.Approve(index, req.Force); err != nil {
		respondError(c, err)
		return
	}
	respondCandidate(c, sess, index)
}

// DiscardCandidate handles POST /api/imports/:id/candidates/:index/discard
func (h *ImportHandler) DiscardCandidate(c *gin.Context) {
	sess, index, ok := h.candidateTarget(c)
	if !ok {
		return
	}
	if err := sess.Discard(index); err != nil {
		respondError(c, err)
		return
	}
	respondCandidate(c, sess, index)
}

// RevertCandidate handles POST /api/imports/:id/candidates/:index/revert
func (h *ImportHandler) RevertCandidate(c *gin.Context) {
	sess, index, ok := h.candidateTarget(c)
	if !ok {
		return
	}
	if err := sess.Revert(index); err != nil {
		respondError(c, err)
		return
	}
	respondCandidate(c, sess, index)
}

// SetTopicRequest represents the request body for overriding a topic
type SetTopicRequest struct {
	TopicID string `json:"topic_id" binding:"required"`
	Lesson  string `json:"lesson"`
}

// SetCandidateTopic handles POST /api/imports/:id/candidates/:index/topic
func (h *ImportHandler) SetCandidateTopic(c *gin.Context) {
	sess, index, ok := h.candidateTarget(c)
	if !ok {
		return
	}

	var req SetTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	if err := sess.SetTopic(index, req.TopicID, req.Lesson); err != nil {
		respondError(c, err)
		return
	}
	respondCandidate(c, sess, index)
}

// SelectRequest represents the request body for marking candidates
type SelectRequest struct {
	Indexes  []int `json:"indexes" binding:"required"`
	Selected bool  `json:"selected"`
}

// SelectCandidates handles POST /api/imports/:id/select
func (h *ImportHandler) SelectCandidates(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	sess, err := h.importService.Session(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := sess.Select(req.Indexes, req.Selected); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"updated":  len(req.Indexes),
			"selected": req.Selected,
		},
	})
}

// BulkApproveRequest represents the request body for approving a bucket
type BulkApproveRequest struct {
	Bucket importer.Bucket `json:"bucket" binding:"required"`
}

// BulkApprove handles POST /api/imports/:id/bulk-approve
func (h *ImportHandler) BulkApprove(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	sess, err := h.importService.Session(id)
	if err != nil {
		respondError(c, err)
		return
	}
	n, err := sess.BulkApprove(req.Bucket)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"bucket":   req.Bucket,
			"approved": n,
		},
	})
}

// CommitRequest represents the request body for committing a session
type CommitRequest struct {
	BatchSize int `json:"batch_size"`
}

// Commit handles POST /api/imports/:id/commit
func (h *ImportHandler) Commit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req CommitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "INVALID_REQUEST", err.Error())
			return
		}
	}
	if req.BatchSize < 0 || req.BatchSize > importer.MaxBatchSize {
		badRequest(c, "INVALID_BATCH_SIZE", fmt.Sprintf("batch_size must be between 1 and %d", importer.MaxBatchSize))
		return
	}

	result, err := h.importService.Commit(c.Request.Context(), service.CommitRequest{
		SessionID: id,
		BatchSize: req.BatchSize,
	})
	if err != nil && result == nil {
		respondError(c, err)
		return
	}

	// a canceled run still reports what was written
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// CloseSession handles DELETE /api/imports/:id
func (h *ImportHandler) CloseSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.importService.CloseSession(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":     id,
			"closed": true,
		},
	})
}
