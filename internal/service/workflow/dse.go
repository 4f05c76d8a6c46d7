package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/merger"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/parser"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

// dseColumns 从全校 DSE 总表复制到院系二年级表的列
var dseColumns = []string{
	model.ColName,
	model.ColYearOfEnrollment,
	model.ColEnrollmentNumber,
	model.ColEligibility,
	model.ColDateOfEnrollment,
}

// DSEResult DSE 分发结果
type DSEResult struct {
	Reports       []merger.Report `json:"reports"`
	MissingTables []string        `json:"missingTables"` // 院系存在但二年级表不存在
	UnknownCodes  []string        `json:"unknownCodes"`  // Department 表中没有的院系简称
}

// AppendDSE 把全校 DSE 总表按 Department 分发到各院系二年级表
// 目标表名大小写不敏感；按学号去重
func (s *Service) AppendDSE(ctx context.Context) (*DSEResult, error) {
	all, err := s.db.SelectAll(ctx, model.AllDSETable)
	if err != nil {
		return nil, err
	}
	deptColumn, ok := parser.FindColumn(all.Columns, model.ColDepartment)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s column", store.ErrSchemaMismatch, model.AllDSETable, model.ColDepartment)
	}

	columns := make(map[string]string, len(dseColumns))
	for _, col := range dseColumns {
		if actual, ok := parser.FindColumn(all.Columns, col); ok {
			columns[col] = actual
		}
	}
	if _, ok := columns[model.ColEnrollmentNumber]; !ok {
		return nil, fmt.Errorf("%w: %s has no %s column", store.ErrSchemaMismatch, model.AllDSETable, model.ColEnrollmentNumber)
	}

	var codes []string
	byCode := make(map[string][]model.Record)
	for _, row := range all.Rows {
		code := row.Text(deptColumn)
		if strings.TrimSpace(code) == "" {
			continue
		}
		if _, ok := byCode[code]; !ok {
			codes = append(codes, code)
		}
		out := make(model.Record, len(columns))
		for col, actual := range columns {
			out[col] = row[actual]
		}
		byCode[code] = append(byCode[code], out)
	}

	result := &DSEResult{Reports: []merger.Report{}, MissingTables: []string{}, UnknownCodes: []string{}}
	for _, code := range codes {
		dept, found, err := s.db.DepartmentByCode(ctx, code)
		if err != nil {
			return result, err
		}
		if !found {
			result.UnknownCodes = append(result.UnknownCodes, code)
			continue
		}

		want := dept.TableName(model.ClassSE)
		table, err := s.db.ResolveTable(ctx, want)
		if err != nil {
			return result, err
		}
		if table == "" {
			result.MissingTables = append(result.MissingTables, want)
			continue
		}

		target := merger.Target{
			Name:          table,
			KeyColumn:     model.ColEnrollmentNumber,
			DateColumn:    model.ColDateOfEnrollment,
			KeepCanonical: true,
		}
		report, err := s.merge(ctx, "dse", target, byCode[code])
		result.Reports = append(result.Reports, report)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}
