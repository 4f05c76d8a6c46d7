package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态
type StatusResponse struct {
	Database     string `json:"database"`     // 方言
	Connected    bool   `json:"connected"`    // 数据库是否可达
	Tables       int    `json:"tables"`       // 用户表数量
	Threshold    int    `json:"threshold"`    // 模糊匹配阈值
	AcademicYear string `json:"academicYear"` // 当前学年
	Error        string `json:"error,omitempty"`
}

// GetStatus 系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	opts := h.svc.Options()
	resp := StatusResponse{
		Database:     string(h.store.Dialect()),
		Threshold:    opts.Threshold,
		AcademicYear: opts.AcademicYear,
	}

	ctx := c.Request.Context()
	if err := h.store.Ping(ctx); err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusOK, resp)
		return
	}
	tables, err := h.store.ListTables(ctx)
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Connected = true
	resp.Tables = len(tables)
	c.JSON(http.StatusOK, resp)
}
