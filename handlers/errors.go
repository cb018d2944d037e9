package handlers

import (
	"context"
	"errors"
	"net/http"

	"quizbank-backend/importer"
	"quizbank-backend/service"

	"github.com/gin-gonic/gin"
)

// errorCode maps service and pipeline errors to an HTTP status and error code
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, service.ErrFileNotFound):
		return http.StatusNotFound, "FILE_NOT_FOUND"
	case errors.Is(err, importer.ErrCandidateNotFound):
		return http.StatusNotFound, "CANDIDATE_NOT_FOUND"
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT"
	case errors.Is(err, importer.ErrEmptyFile):
		return http.StatusBadRequest, "EMPTY_FILE"
	case errors.Is(err, importer.ErrParseFailed):
		return http.StatusBadRequest, "PARSE_FAILED"
	case errors.Is(err, importer.ErrInvalidBucket):
		return http.StatusBadRequest, "INVALID_BUCKET"
	case errors.Is(err, importer.ErrUnknownTopic), errors.Is(err, service.ErrUnknownExamTopic):
		return http.StatusBadRequest, "UNKNOWN_TOPIC"
	case errors.Is(err, importer.ErrCriticalIssues):
		return http.StatusConflict, "CRITICAL_ISSUES"
	case errors.Is(err, importer.ErrExactDuplicate):
		return http.StatusConflict, "EXACT_DUPLICATE"
	case errors.Is(err, importer.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, importer.ErrCommitInProgress):
		return http.StatusConflict, "COMMIT_IN_PROGRESS"
	case errors.Is(err, importer.ErrCorpusUnavailable):
		return http.StatusServiceUnavailable, "CORPUS_UNAVAILABLE"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := errorCode(err)
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
