package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/matcher"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/parser"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

// EligibilityRequest 资格判定请求
type EligibilityRequest struct {
	SheetColumn string `json:"sheetColumn"` // 上传名单中用于比对的列
	Table       string `json:"table"`       // 库中的目标表
	TableColumn string `json:"tableColumn"` // 目标表中用于比对的列
	Threshold   int    `json:"threshold"`   // 可选，覆盖配置阈值
}

// EligibilityResult 资格判定结果
type EligibilityResult struct {
	Table     string         `json:"table"`
	Matched   []matcher.Pair `json:"matched"`
	Unmatched []string       `json:"unmatched"`
	Updated   int64          `json:"updated"` // 被改写的行数
}

// MarkDropouts 退学名单：名单中每个值匹配目标表列，命中行改为 not eligible
func (s *Service) MarkDropouts(ctx context.Context, sheet *model.Table, req EligibilityRequest) (*EligibilityResult, error) {
	table, eligibility, err := s.loadEligibilityTable(ctx, sheet, req)
	if err != nil {
		return nil, err
	}

	m := s.matcherFor(req.Threshold)
	outcome := m.MatchAll(sheet.ColumnValues(req.SheetColumn), matcher.Candidates(table.ColumnValues(req.TableColumn)))

	result := &EligibilityResult{Table: table.Name, Matched: outcome.Matched, Unmatched: outcome.Unmatched}
	updated := make(map[string]bool, len(outcome.Matched))
	for _, pair := range outcome.Matched {
		if updated[pair.Candidate] {
			continue
		}
		updated[pair.Candidate] = true
		n, err := s.db.UpdateWhere(ctx, table.Name, eligibility, model.NotEligible, req.TableColumn, pair.Candidate)
		if err != nil {
			return result, err
		}
		result.Updated += n
	}
	return result, nil
}

// ApplyHODList HOD 名单：目标表每行匹配名单中的去重值，命中为 eligible，否则为 not eligible
func (s *Service) ApplyHODList(ctx context.Context, sheet *model.Table, req EligibilityRequest) (*EligibilityResult, error) {
	table, eligibility, err := s.loadEligibilityTable(ctx, sheet, req)
	if err != nil {
		return nil, err
	}

	candidates := distinctText(sheet.ColumnValues(req.SheetColumn))
	m := s.matcherFor(req.Threshold)

	result := &EligibilityResult{Table: table.Name, Matched: []matcher.Pair{}, Unmatched: []string{}}
	decided := make(map[string]bool)
	for _, row := range table.Rows {
		value := row.Text(req.TableColumn)
		if strings.TrimSpace(value) == "" || decided[value] {
			continue
		}
		decided[value] = true

		status := model.NotEligible
		if r := m.Match(value, candidates); r.Matched {
			status = model.Eligible
			result.Matched = append(result.Matched, matcher.Pair{Source: value, Result: r})
		} else {
			result.Unmatched = append(result.Unmatched, value)
		}

		n, err := s.db.UpdateWhere(ctx, table.Name, eligibility, status, req.TableColumn, value)
		if err != nil {
			return result, err
		}
		result.Updated += n
	}
	return result, nil
}

// loadEligibilityTable 读取目标表并定位 Eligibility 列
func (s *Service) loadEligibilityTable(ctx context.Context, sheet *model.Table, req EligibilityRequest) (*model.Table, string, error) {
	if err := requireColumn(sheet, req.SheetColumn); err != nil {
		return nil, "", err
	}
	table, err := s.db.SelectAll(ctx, req.Table)
	if err != nil {
		return nil, "", err
	}
	if err := requireColumn(table, req.TableColumn); err != nil {
		return nil, "", err
	}
	eligibility, ok := parser.FindColumn(table.Columns, model.ColEligibility)
	if !ok {
		return nil, "", fmt.Errorf("%w: table %s has no %s column", store.ErrSchemaMismatch, req.Table, model.ColEligibility)
	}
	return table, eligibility, nil
}

// distinctText 非空文本值去重，保持首次出现顺序
func distinctText(values []any) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		text := model.Stringify(v)
		if strings.TrimSpace(text) == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	return out
}
