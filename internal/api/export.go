package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/exporter"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/service/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportBody 导出请求体
type exportBody struct {
	Kind       string `json:"kind" binding:"required"`
	Department string `json:"department"`
	Class      string `json:"class"`
	Table      string `json:"table"`
}

// ExportResponse 导出结果，凭 token 下载
type ExportResponse struct {
	Token    string `json:"token"`
	FileName string `json:"fileName"`
	Sheets   int    `json:"sheets"`
	Size     int    `json:"size"`
}

// Export 生成报表并返回下载令牌
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var body exportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	req := workflow.ExportRequest{
		Kind:       workflow.ExportKind(strings.ToLower(body.Kind)),
		Department: body.Department,
		Table:      body.Table,
	}
	if body.Class != "" {
		class, ok := model.ParseClass(body.Class)
		if !ok {
			badRequest(c, "unknown class "+body.Class)
			return
		}
		req.Class = class
	}

	exp, err := h.svc.BuildExport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, exp.Sheets); err != nil {
		respondError(c, err)
		return
	}

	fileName := exp.FileName + ".xlsx"
	token := h.downloads.Put(download{fileName: fileName, data: buf.Bytes()})
	c.JSON(http.StatusOK, ExportResponse{
		Token:    token,
		FileName: fileName,
		Sheets:   len(exp.Sheets),
		Size:     buf.Len(),
	})
}

// DownloadExport 下载报表（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.Get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download link expired"})
		return
	}
	h.downloads.Delete(token)

	c.Header("Content-Disposition", contentDisposition(item.fileName))
	c.Data(http.StatusOK, xlsxContentType, item.data)
}

// contentDisposition attachment 头，ASCII 文件名兜底，filename* 保留原名
func contentDisposition(fileName string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, fileName)
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", ascii, url.PathEscape(fileName))
}
