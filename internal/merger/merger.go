// Package merger 把比对命中的行追加到目标表：按键列去重，规范化日期列
package merger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/parser"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

// KeyStore 合并所需的存储能力，*store.Store 实现该接口
type KeyStore interface {
	TableExists(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, table string, columns []string) error
	ListColumns(ctx context.Context, table string) ([]string, error)
	ExistingKeys(ctx context.Context, table, column string, values []any) (map[string]struct{}, error)
	InsertRecords(ctx context.Context, table string, columns []string, rows []model.Record) (int, error)
}

// Target 合并目标
type Target struct {
	Name       string   // 目标表名
	KeyColumn  string   // 去重键列
	DateColumn string   // 需要规范化的日期列，空表示不处理
	Layout     []string // 目标表不存在时的建表列，空则使用学生表固定列

	// KeepCanonical 为 true 时按 MM/DD/YYYY 读取已保存的日期，不再按 DD/MM 优先级重新解析
	KeepCanonical bool
}

// normalizeDate 规范化日期列；KeepCanonical 时月在前的斜杠日期只补零，不重新按优先级解析
func (t Target) normalizeDate(s string) (string, bool) {
	if t.KeepCanonical {
		if d, ok := parser.ParseMonthFirstDate(s); ok {
			return d.Format(parser.CanonicalDateLayout), true
		}
	}
	return parser.NormalizeDate(s)
}

// Report 合并结果
type Report struct {
	Target      string   `json:"target"`
	Created     bool     `json:"created"`     // 本次新建了目标表
	Appended    int      `json:"appended"`    // 写入行数
	Skipped     int      `json:"skipped"`     // 因键已存在（或批内重复）跳过的行数
	SkippedKeys []string `json:"skippedKeys"` // 跳过的键
	MissingKey  int      `json:"missingKey"`  // 键为空而跳过的行数
	BadDates    int      `json:"badDates"`    // 无法解析、已置空的日期个数
	BadDateRows []string `json:"badDateRows"` // 日期无法解析的行的键
}

// Merge 把 rows 追加到 target，键已存在的行跳过
// 存储失败时返回包装后的错误，Report 带出已完成的部分计数
func Merge(ctx context.Context, ks KeyStore, target Target, rows []model.Record) (Report, error) {
	report := Report{Target: target.Name, SkippedKeys: []string{}, BadDateRows: []string{}}

	if strings.TrimSpace(target.KeyColumn) == "" {
		return report, fmt.Errorf("%w: empty key column for %q", store.ErrMalformedCall, target.Name)
	}
	if strings.TrimSpace(target.Name) == "" {
		return report, fmt.Errorf("%w: empty target table", store.ErrMalformedCall)
	}

	exists, err := ks.TableExists(ctx, target.Name)
	if err != nil {
		return report, fmt.Errorf("merge into %s: %w", target.Name, err)
	}
	if !exists {
		layout := target.Layout
		if len(layout) == 0 {
			layout = model.StudentLayout(false)
		}
		if err := ks.CreateTable(ctx, target.Name, layout); err != nil {
			return report, fmt.Errorf("merge into %s: %w", target.Name, err)
		}
		report.Created = true
	}

	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row[target.KeyColumn])
	}

	existing, err := ks.ExistingKeys(ctx, target.Name, target.KeyColumn, keys)
	if err != nil {
		return report, fmt.Errorf("merge into %s: %w", target.Name, err)
	}

	fresh := make([]model.Record, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := row.Text(target.KeyColumn)
		if strings.TrimSpace(key) == "" {
			report.MissingKey++
			continue
		}
		if _, ok := existing[key]; ok {
			report.Skipped++
			report.SkippedKeys = append(report.SkippedKeys, key)
			continue
		}
		if _, ok := seen[key]; ok {
			report.Skipped++
			report.SkippedKeys = append(report.SkippedKeys, key)
			continue
		}
		seen[key] = struct{}{}

		// 只有真正写入的行才计入日期错误
		r := row.Clone()
		if target.DateColumn != "" && !r.IsBlank(target.DateColumn) {
			if normalized, ok := target.normalizeDate(r.Text(target.DateColumn)); ok {
				r[target.DateColumn] = normalized
			} else {
				r[target.DateColumn] = nil
				report.BadDates++
				report.BadDateRows = append(report.BadDateRows, key)
			}
		}
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		return report, nil
	}

	columns, err := insertColumns(ctx, ks, target.Name, fresh)
	if err != nil {
		return report, fmt.Errorf("merge into %s: %w", target.Name, err)
	}

	n, err := ks.InsertRecords(ctx, target.Name, columns, fresh)
	report.Appended = n
	if err != nil {
		return report, fmt.Errorf("merge into %s: %w", target.Name, err)
	}
	return report, nil
}

// insertColumns 写入列：按目标表列顺序取行中出现过的列，表中没有的列排在最后（插入时报 schema mismatch）
func insertColumns(ctx context.Context, ks KeyStore, table string, rows []model.Record) ([]string, error) {
	present := make(map[string]struct{})
	for _, r := range rows {
		for col := range r {
			present[col] = struct{}{}
		}
	}

	tableCols, err := ks.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(present))
	for _, col := range tableCols {
		if _, ok := present[col]; ok {
			columns = append(columns, col)
			delete(present, col)
		}
	}

	extra := make([]string, 0, len(present))
	for col := range present {
		extra = append(extra, col)
	}
	sort.Strings(extra)
	return append(columns, extra...), nil
}
