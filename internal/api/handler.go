// Package api 业务页面的 HTTP JSON 接口
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/parser"
	"github.com/PoorvaU/prn-extractor/internal/service/cache"
	"github.com/PoorvaU/prn-extractor/internal/service/workflow"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

const (
	uploadTTL   = 30 * time.Minute
	downloadTTL = 10 * time.Minute
)

// download 待下载的报表
type download struct {
	fileName string
	data     []byte
}

// Handler API 处理器
type Handler struct {
	store     *store.Store
	svc       *workflow.Service
	uploads   *cache.Store[*parser.Workbook]
	downloads *cache.Store[download]
}

// NewHandler 创建 API 处理器
func NewHandler(st *store.Store, svc *workflow.Service) *Handler {
	return &Handler{
		store:     st,
		svc:       svc,
		uploads:   cache.New[*parser.Workbook](uploadTTL),
		downloads: cache.New[download](downloadTTL),
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 库表与院系
	router.GET("/tables", h.ListTables)
	router.GET("/tables/:name/columns", h.ListColumns)
	router.GET("/tables/:name/rows", h.PreviewTable)
	router.GET("/departments", h.ListDepartments)
	router.POST("/departments", h.AddDepartment)
	router.GET("/merge-logs", h.ListMergeLogs)

	// 上传名单
	router.POST("/uploads", h.Upload)
	router.GET("/uploads/:token", h.GetUpload)
	router.GET("/uploads/:token/sheets/:sheet", h.PreviewSheet)
	router.DELETE("/uploads/:token", h.DeleteUpload)

	// PRN 生成
	router.POST("/prn/preview", h.PreviewPRN)
	router.POST("/prn/save", h.SavePRN)

	// 资格判定
	router.POST("/eligibility/dropouts", h.MarkDropouts)
	router.POST("/eligibility/hod", h.ApplyHODList)

	// 一年级名单比对
	router.POST("/compare/fe", h.CompareDepartment)
	router.POST("/compare/branchwise", h.CompareBranchwise)

	// DSE 分发
	router.POST("/dse/append", h.AppendDSE)

	// 报表导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}
