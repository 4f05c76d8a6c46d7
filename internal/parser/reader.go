package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/PoorvaU/prn-extractor/internal/model"
)

// ErrSheetNotFound 工作表不存在
var ErrSheetNotFound = errors.New("sheet not found")

// Workbook 已解析的上传工作簿
type Workbook struct {
	FileName string
	Sheets   []*model.Table
}

// SheetSummary 工作表概要（给前端选择 Sheet / 列）
type SheetSummary struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// ReadWorkbook 读取 xlsx：每个 Sheet 的第一行作为表头，其余行转为 Record
func ReadWorkbook(reader io.Reader, fileName string) (*Workbook, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()

	return FromFile(f, fileName)
}

// FromFile 从已打开的 excelize 文件构建 Workbook
func FromFile(f *excelize.File, fileName string) (*Workbook, error) {
	wb := &Workbook{FileName: fileName}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, buildTable(name, rows))
	}
	return wb, nil
}

// Sheet 按名称获取工作表
func (w *Workbook) Sheet(name string) (*model.Table, error) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
}

// First 第一个工作表（单 Sheet 上传的默认选择）
func (w *Workbook) First() (*model.Table, error) {
	if len(w.Sheets) == 0 {
		return nil, ErrSheetNotFound
	}
	return w.Sheets[0], nil
}

// Summaries 所有工作表概要
func (w *Workbook) Summaries() []SheetSummary {
	out := make([]SheetSummary, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		out = append(out, SheetSummary{
			Name:     s.Name,
			Columns:  s.Columns,
			RowCount: len(s.Rows),
		})
	}
	return out
}

// Preview 返回前 limit 行
func Preview(t *model.Table, limit int) []model.Record {
	if limit <= 0 || limit > len(t.Rows) {
		limit = len(t.Rows)
	}
	return t.Rows[:limit]
}

// buildTable 表头去重（重复列追加 .1/.2，空表头记为 Unnamed: N），空单元格记为 nil
func buildTable(name string, rows [][]string) *model.Table {
	t := &model.Table{Name: name, Columns: []string{}, Rows: []model.Record{}}
	if len(rows) == 0 {
		return t
	}

	t.Columns = headerColumns(rows[0])
	for _, cells := range rows[1:] {
		if isBlankRow(cells) {
			continue
		}
		rec := make(model.Record, len(t.Columns))
		for i, col := range t.Columns {
			var v any
			if i < len(cells) && strings.TrimSpace(cells[i]) != "" {
				v = cells[i]
			}
			rec[col] = v
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// headerColumns 表头列名，空表头记为 "Unnamed: i"，重名依次加 .1 .2 直到不再冲突
func headerColumns(header []string) []string {
	used := make(map[string]struct{}, len(header))
	suffix := make(map[string]int, len(header))
	cols := make([]string, 0, len(header))
	for i, h := range header {
		base := NormalizeColumnName(h)
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}
		col := base
		for {
			if _, ok := used[col]; !ok {
				break
			}
			suffix[base]++
			col = base + "." + strconv.Itoa(suffix[base])
		}
		used[col] = struct{}{}
		cols = append(cols, col)
	}
	return cols
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
