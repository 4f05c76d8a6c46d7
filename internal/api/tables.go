package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/parser"
)

const defaultPreviewRows = 20

// ListTables 列出库表
// GET /api/tables
func (h *Handler) ListTables(c *gin.Context) {
	tables, err := h.store.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// ListColumns 列出表的列
// GET /api/tables/:name/columns
func (h *Handler) ListColumns(c *gin.Context) {
	columns, err := h.store.ListColumns(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": c.Param("name"), "columns": columns})
}

// PreviewTable 表的前若干行
// GET /api/tables/:name/rows?limit=20
func (h *Handler) PreviewTable(c *gin.Context) {
	t, err := h.store.SelectAll(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"table":   t.Name,
		"columns": t.Columns,
		"rows":    parser.Preview(t, previewLimit(c)),
		"total":   len(t.Rows),
	})
}

// ListDepartments 院系清单
// GET /api/departments
func (h *Handler) ListDepartments(c *gin.Context) {
	depts, err := h.svc.Departments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": depts})
}

// AddDepartment 新增院系
// POST /api/departments
func (h *Handler) AddDepartment(c *gin.Context) {
	var req model.Department
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.store.AddDepartment(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListMergeLogs 最近的合并记录
// GET /api/merge-logs?limit=20
func (h *Handler) ListMergeLogs(c *gin.Context) {
	logs, err := h.store.RecentMergeLogs(c.Request.Context(), previewLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func previewLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPreviewRows)))
	if err != nil || limit <= 0 {
		return defaultPreviewRows
	}
	return limit
}
