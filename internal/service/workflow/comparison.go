package workflow

import (
	"context"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/matcher"
	"github.com/PoorvaU/prn-extractor/internal/merger"
	"github.com/PoorvaU/prn-extractor/internal/model"
)

// CompareRequest 一年级名单比对请求
type CompareRequest struct {
	SheetColumn  string `json:"sheetColumn"`  // 上传名单中用于比对的列
	BranchColumn string `json:"branchColumn"` // 按专业分流时上传名单中的专业简称列
	Table        string `json:"table"`        // 来源表（通常为全校一年级总表）
	TableColumn  string `json:"tableColumn"`  // 来源表中用于比对的列，同时作为目标表去重键
	Department   string `json:"department"`   // 按院系比对时的院系名称
	Threshold    int    `json:"threshold"`
}

// CompareResult 比对结果
type CompareResult struct {
	Matched         []matcher.Pair  `json:"matched"`
	Unmatched       []string        `json:"unmatched"`
	UnknownBranches []string        `json:"unknownBranches"`
	Reports         []merger.Report `json:"reports"`
}

// CompareDepartment 名单中的值与来源表比对，命中行复制到该院系的一年级表
func (s *Service) CompareDepartment(ctx context.Context, sheet *model.Table, req CompareRequest) (*CompareResult, error) {
	source, err := s.loadCompareSource(ctx, sheet, req)
	if err != nil {
		return nil, err
	}
	dept, err := s.department(ctx, req.Department)
	if err != nil {
		return nil, err
	}

	m := s.matcherFor(req.Threshold)
	candidates := matcher.Candidates(source.ColumnValues(req.TableColumn))
	outcome := m.MatchAll(sheet.ColumnValues(req.SheetColumn), candidates)

	result := &CompareResult{
		Matched:         outcome.Matched,
		Unmatched:       outcome.Unmatched,
		UnknownBranches: []string{},
		Reports:         []merger.Report{},
	}

	rows := make([]model.Record, 0, len(outcome.Matched))
	for _, pair := range outcome.Matched {
		// 并列取先出现者，Index 即首个持有该值的行
		rows = append(rows, source.Rows[pair.Index].Clone())
	}

	report, err := s.merge(ctx, "compare-fe", s.feTarget(dept, source, req.TableColumn), rows)
	result.Reports = append(result.Reports, report)
	return result, err
}

// CompareBranchwise 名单中的值与来源表比对，命中行按名单中的专业简称分组写入各院系一年级表
// 未知的专业简称记录后跳过
func (s *Service) CompareBranchwise(ctx context.Context, sheet *model.Table, req CompareRequest) (*CompareResult, error) {
	source, err := s.loadCompareSource(ctx, sheet, req)
	if err != nil {
		return nil, err
	}
	if err := requireColumn(sheet, req.BranchColumn); err != nil {
		return nil, err
	}

	m := s.matcherFor(req.Threshold)
	candidates := matcher.Candidates(source.ColumnValues(req.TableColumn))

	result := &CompareResult{
		Matched:         []matcher.Pair{},
		Unmatched:       []string{},
		UnknownBranches: []string{},
		Reports:         []merger.Report{},
	}

	type group struct {
		dept model.Department
		rows []model.Record
	}
	var order []string
	groups := make(map[string]*group)
	unknown := make(map[string]bool)

	for _, row := range sheet.Rows {
		value := row.Text(req.SheetColumn)
		if strings.TrimSpace(value) == "" {
			continue
		}
		r := m.Match(value, candidates)
		if !r.Matched {
			result.Unmatched = append(result.Unmatched, value)
			continue
		}
		result.Matched = append(result.Matched, matcher.Pair{Source: value, Result: r})

		code := strings.TrimSpace(row.Text(req.BranchColumn))
		key := strings.ToUpper(code)
		g, ok := groups[key]
		if !ok {
			if unknown[key] {
				continue
			}
			dept, found, err := s.db.DepartmentByCode(ctx, code)
			if err != nil {
				return result, err
			}
			if !found {
				unknown[key] = true
				result.UnknownBranches = append(result.UnknownBranches, code)
				continue
			}
			g = &group{dept: dept}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, source.Rows[r.Index].Clone())
	}

	for _, key := range order {
		g := groups[key]
		report, err := s.merge(ctx, "compare-branchwise", s.feTarget(g.dept, source, req.TableColumn), g.rows)
		result.Reports = append(result.Reports, report)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// feTarget 院系一年级表，不存在时按来源表的列建表
func (s *Service) feTarget(dept model.Department, source *model.Table, key string) merger.Target {
	return merger.Target{
		Name:      dept.TableName(model.ClassFE),
		KeyColumn: key,
		Layout:    source.Columns,
	}
}

func (s *Service) loadCompareSource(ctx context.Context, sheet *model.Table, req CompareRequest) (*model.Table, error) {
	if err := requireColumn(sheet, req.SheetColumn); err != nil {
		return nil, err
	}
	source, err := s.db.SelectAll(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	if err := requireColumn(source, req.TableColumn); err != nil {
		return nil, err
	}
	return source, nil
}
