package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/logger"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/parser"
)

// maxUploadSize 上传文件大小上限
const maxUploadSize = 32 << 20

// UploadResponse 上传结果
type UploadResponse struct {
	Token    string                `json:"token"`
	FileName string                `json:"fileName"`
	Sheets   []parser.SheetSummary `json:"sheets"`
}

// Upload 上传 xlsx 名单，解析后缓存
// POST /api/uploads (multipart: file)
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing upload file")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		badRequest(c, "only .xlsx files are supported")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	wb, err := parser.ReadWorkbook(f, fileHeader.Filename)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	token := h.uploads.Put(wb)
	logger.Info().
		Str("file", fileHeader.Filename).
		Int("sheets", len(wb.Sheets)).
		Str("token", token).
		Msg("workbook uploaded")

	c.JSON(http.StatusOK, UploadResponse{Token: token, FileName: wb.FileName, Sheets: wb.Summaries()})
}

// GetUpload 已上传工作簿的概要
// GET /api/uploads/:token
func (h *Handler) GetUpload(c *gin.Context) {
	wb, ok := h.uploads.Get(c.Param("token"))
	if !ok {
		respondError(c, errUploadNotFound)
		return
	}
	c.JSON(http.StatusOK, UploadResponse{Token: c.Param("token"), FileName: wb.FileName, Sheets: wb.Summaries()})
}

// PreviewSheet 工作表前若干行
// GET /api/uploads/:token/sheets/:sheet?limit=20
func (h *Handler) PreviewSheet(c *gin.Context) {
	t, err := h.sheet(sheetRef{Token: c.Param("token"), Sheet: c.Param("sheet")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sheet":   t.Name,
		"columns": t.Columns,
		"rows":    parser.Preview(t, previewLimit(c)),
		"total":   len(t.Rows),
	})
}

// DeleteUpload 丢弃已上传的工作簿
// DELETE /api/uploads/:token
func (h *Handler) DeleteUpload(c *gin.Context) {
	h.uploads.Delete(c.Param("token"))
	c.Status(http.StatusNoContent)
}

// sheetRef 请求中引用的上传工作表，Sheet 为空时取第一个
type sheetRef struct {
	Token string `json:"token" binding:"required"`
	Sheet string `json:"sheet"`
}

func (h *Handler) sheet(ref sheetRef) (*model.Table, error) {
	wb, ok := h.uploads.Get(ref.Token)
	if !ok {
		return nil, errUploadNotFound
	}
	if ref.Sheet == "" {
		return wb.First()
	}
	return wb.Sheet(ref.Sheet)
}
