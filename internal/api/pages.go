package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/service/workflow"
)

// prnBody PRN 生成请求体
type prnBody struct {
	sheetRef
	Department string   `json:"department"`
	Class      string   `json:"class" binding:"required"`
	Columns    []string `json:"columns" binding:"required,min=1"`
	AddYear    bool     `json:"addYear"`
}

func (h *Handler) bindPRN(c *gin.Context) (*model.Table, workflow.PRNRequest, bool) {
	var body prnBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return nil, workflow.PRNRequest{}, false
	}
	class, ok := model.ParseClass(body.Class)
	if !ok {
		badRequest(c, "class must be one of FE, SE, TE, BE, DSE")
		return nil, workflow.PRNRequest{}, false
	}
	sheet, err := h.sheet(body.sheetRef)
	if err != nil {
		respondError(c, err)
		return nil, workflow.PRNRequest{}, false
	}
	return sheet, workflow.PRNRequest{
		Department: body.Department,
		Class:      class,
		Columns:    body.Columns,
		AddYear:    body.AddYear,
	}, true
}

// PreviewPRN 预览待写入的名单
// POST /api/prn/preview
func (h *Handler) PreviewPRN(c *gin.Context) {
	sheet, req, ok := h.bindPRN(c)
	if !ok {
		return
	}
	preview, err := h.svc.BuildPRN(c.Request.Context(), sheet, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// SavePRN 写入名单
// POST /api/prn/save
func (h *Handler) SavePRN(c *gin.Context) {
	sheet, req, ok := h.bindPRN(c)
	if !ok {
		return
	}
	result, err := h.svc.SavePRN(c.Request.Context(), sheet, req)
	respondPartial(c, result, err)
}

// eligibilityBody 资格判定请求体
type eligibilityBody struct {
	sheetRef
	workflow.EligibilityRequest
}

func (h *Handler) bindEligibility(c *gin.Context) (*model.Table, workflow.EligibilityRequest, bool) {
	var body eligibilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return nil, workflow.EligibilityRequest{}, false
	}
	sheet, err := h.sheet(body.sheetRef)
	if err != nil {
		respondError(c, err)
		return nil, workflow.EligibilityRequest{}, false
	}
	return sheet, body.EligibilityRequest, true
}

// MarkDropouts 退学名单
// POST /api/eligibility/dropouts
func (h *Handler) MarkDropouts(c *gin.Context) {
	sheet, req, ok := h.bindEligibility(c)
	if !ok {
		return
	}
	result, err := h.svc.MarkDropouts(c.Request.Context(), sheet, req)
	respondPartial(c, result, err)
}

// ApplyHODList HOD 名单
// POST /api/eligibility/hod
func (h *Handler) ApplyHODList(c *gin.Context) {
	sheet, req, ok := h.bindEligibility(c)
	if !ok {
		return
	}
	result, err := h.svc.ApplyHODList(c.Request.Context(), sheet, req)
	respondPartial(c, result, err)
}

// compareBody 名单比对请求体
type compareBody struct {
	sheetRef
	workflow.CompareRequest
}

func (h *Handler) bindCompare(c *gin.Context) (*model.Table, workflow.CompareRequest, bool) {
	var body compareBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return nil, workflow.CompareRequest{}, false
	}
	sheet, err := h.sheet(body.sheetRef)
	if err != nil {
		respondError(c, err)
		return nil, workflow.CompareRequest{}, false
	}
	return sheet, body.CompareRequest, true
}

// CompareDepartment 一年级按院系比对
// POST /api/compare/fe
func (h *Handler) CompareDepartment(c *gin.Context) {
	sheet, req, ok := h.bindCompare(c)
	if !ok {
		return
	}
	result, err := h.svc.CompareDepartment(c.Request.Context(), sheet, req)
	respondPartial(c, result, err)
}

// CompareBranchwise 一年级按专业分流
// POST /api/compare/branchwise
func (h *Handler) CompareBranchwise(c *gin.Context) {
	sheet, req, ok := h.bindCompare(c)
	if !ok {
		return
	}
	result, err := h.svc.CompareBranchwise(c.Request.Context(), sheet, req)
	respondPartial(c, result, err)
}

// AppendDSE DSE 总表分发
// POST /api/dse/append
func (h *Handler) AppendDSE(c *gin.Context) {
	result, err := h.svc.AppendDSE(c.Request.Context())
	respondPartial(c, result, err)
}
