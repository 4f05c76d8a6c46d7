package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/exporter"
	"github.com/PoorvaU/prn-extractor/internal/logger"
	"github.com/PoorvaU/prn-extractor/internal/parser"
	"github.com/PoorvaU/prn-extractor/internal/service/workflow"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

var errUploadNotFound = errors.New("upload not found or expired")

// statusFor 错误对应的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrConnectivity):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrMalformedCall),
		errors.Is(err, store.ErrSchemaMismatch),
		errors.Is(err, workflow.ErrUnknownDepartment):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrNothingToExport),
		errors.Is(err, exporter.ErrNoSheets),
		errors.Is(err, parser.ErrSheetNotFound),
		errors.Is(err, errUploadNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError 输出 {"error": "..."}
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondPartial 失败时仍带出已完成的部分结果
func respondPartial(c *gin.Context, result any, err error) {
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error(), "result": result})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
