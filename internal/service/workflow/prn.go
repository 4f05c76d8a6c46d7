package workflow

import (
	"context"
	"fmt"

	"github.com/PoorvaU/prn-extractor/internal/merger"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/parser"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

// PRNRequest PRN 生成请求
type PRNRequest struct {
	Department string      `json:"department"`
	Class      model.Class `json:"class"`
	Columns    []string    `json:"columns"` // 按目标列顺序选择的上传列
	AddYear    bool        `json:"addYear"` // 在第二列插入 Year of Enrollment
}

// PRNPreview 待写入的数据
type PRNPreview struct {
	Selection
	Table    string         `json:"table"`
	Columns  []string       `json:"columns"`
	Rows     []model.Record `json:"rows"`
	BadDates int            `json:"badDates"`
}

// PRNResult 保存结果
type PRNResult struct {
	*PRNPreview
	Report merger.Report `json:"report"`
}

// YearAllowed 是否允许插入学年列（仅一年级或全部院系）
func (sel Selection) YearAllowed() bool {
	return sel.Class == model.ClassFE || sel.IsAll()
}

// BuildPRN 按选择的列构造名单，不写库
func (s *Service) BuildPRN(ctx context.Context, sheet *model.Table, req PRNRequest) (*PRNPreview, error) {
	sel := NormalizeSelection(req.Department, req.Class)
	table, err := s.TargetTable(ctx, sel)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(req.Columns))
	for _, col := range req.Columns {
		actual, ok := parser.FindColumn(sheet.Columns, col)
		if !ok {
			return nil, fmt.Errorf("%w: column %q not found in uploaded sheet", store.ErrSchemaMismatch, col)
		}
		sources = append(sources, actual)
	}

	addYear := req.AddYear && sel.YearAllowed()
	order := len(sources)
	if addYear {
		order++
	}
	layout := model.StudentLayout(false)
	if len(sources) == 0 || order > len(layout) {
		return nil, fmt.Errorf("%w: select between 1 and %d columns", store.ErrMalformedCall, len(layout))
	}

	var deptColumn string
	if sel.AllDSE() {
		actual, ok := parser.FindColumn(sheet.Columns, model.ColDepartment)
		if !ok {
			return nil, fmt.Errorf("%w: uploaded sheet has no %s column", store.ErrSchemaMismatch, model.ColDepartment)
		}
		deptColumn = actual
	}

	// 选择的列按位置改名为固定列，学年列固定在第二位
	picked := make([]string, 0, order)
	picked = append(picked, sources...)
	if addYear {
		picked = append(picked[:1], append([]string{""}, picked[1:]...)...)
	}
	names := layout[:order]

	preview := &PRNPreview{
		Selection: sel,
		Table:     table,
		Columns:   model.StudentLayout(sel.AllDSE()),
		Rows:      make([]model.Record, 0, len(sheet.Rows)),
	}

	for _, src := range sheet.Rows {
		row := make(model.Record, len(preview.Columns))
		for i, name := range names {
			if picked[i] == "" {
				row[name] = s.opts.AcademicYear
				continue
			}
			row[name] = src[picked[i]]
		}

		if v, ok := row[model.ColDateOfEnrollment]; ok && v != nil {
			if normalized, ok := parser.NormalizeDate(model.Stringify(v)); ok {
				row[model.ColDateOfEnrollment] = normalized
			} else {
				row[model.ColDateOfEnrollment] = nil
				preview.BadDates++
			}
		}
		if v, ok := row[model.ColEnrollmentNumber]; ok && v != nil {
			row[model.ColEnrollmentNumber] = parser.NormalizeEnrollmentNumber(model.Stringify(v))
		}
		row[model.ColEligibility] = model.Eligible
		if deptColumn != "" {
			row[model.ColDepartment] = src[deptColumn]
		}
		preview.Rows = append(preview.Rows, row)
	}
	return preview, nil
}

// SavePRN 构造名单并按 Name 去重写入目标表
func (s *Service) SavePRN(ctx context.Context, sheet *model.Table, req PRNRequest) (*PRNResult, error) {
	preview, err := s.BuildPRN(ctx, sheet, req)
	if err != nil {
		return nil, err
	}

	// 日期已在构造时规范化
	target := merger.Target{
		Name:      preview.Table,
		KeyColumn: model.ColName,
		Layout:    preview.Columns,
	}
	report, err := s.merge(ctx, "prn", target, preview.Rows)
	return &PRNResult{PRNPreview: preview, Report: report}, err
}
