// Package exporter 把数据库表写成带样式的 xlsx 报表
package exporter

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/PoorvaU/prn-extractor/internal/model"
)

const (
	fontFamily    = "Times New Roman"
	fontSize      = 12
	rowHeight     = 30
	visibleCols   = 4         // 仅前四列可见并自动列宽
	missingFill   = "#FF0000" // 学号为空的单元格底色
	maxSheetName  = 31
	textNumFmtID  = 49 // "@" 文本格式
	defaultSheet  = "Sheet1"
	widthPadding  = 2
	invalidRunes  = `:\/?*[]`
	fallbackTitle = "Data"
)

// ErrNoSheets 没有可写的工作表
var ErrNoSheets = errors.New("no sheets to write")

// Sheet 一个输出工作表
type Sheet struct {
	Name    string
	Columns []string
	Rows    []model.Record
}

// SheetFromTable 由表构造工作表
func SheetFromTable(name string, t *model.Table) Sheet {
	return Sheet{Name: name, Columns: t.Columns, Rows: t.Rows}
}

type styles struct {
	header  int
	body    int
	text    int
	missing int
}

// Build 生成工作簿，调用方负责 Close
func Build(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	used := make(map[string]bool, len(sheets))
	for i, sh := range sheets {
		name := uniqueSheetName(sanitizeSheetName(sh.Name), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, sh, st); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write sheet %s: %w", name, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write 生成工作簿并写入 w
func Write(w io.Writer, sheets []Sheet) error {
	f, err := Build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	font := func(bold bool) *excelize.Font {
		return &excelize.Font{Family: fontFamily, Size: fontSize, Bold: bold}
	}
	align := &excelize.Alignment{WrapText: true, Vertical: "center"}

	var st styles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{Font: font(true), Alignment: align}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.body, err = f.NewStyle(&excelize.Style{Font: font(false), Alignment: align}); err != nil {
		return st, fmt.Errorf("body style: %w", err)
	}
	if st.text, err = f.NewStyle(&excelize.Style{Font: font(false), Alignment: align, NumFmt: textNumFmtID}); err != nil {
		return st, fmt.Errorf("text style: %w", err)
	}
	st.missing, err = f.NewStyle(&excelize.Style{
		Font:      font(false),
		Alignment: align,
		NumFmt:    textNumFmtID,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{missingFill}, Pattern: 1},
	})
	if err != nil {
		return st, fmt.Errorf("missing style: %w", err)
	}
	return st, nil
}

func writeSheet(f *excelize.File, name string, sh Sheet, st styles) error {
	height := float64(rowHeight)
	custom := true
	if err := f.SetSheetProps(name, &excelize.SheetPropsOptions{
		DefaultRowHeight: &height,
		CustomHeight:     &custom,
	}); err != nil {
		return err
	}

	widths := make([]int, len(sh.Columns))
	for c, col := range sh.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(name, cell, col); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, st.header); err != nil {
			return err
		}
		widths[c] = utf8.RuneCountInString(col)
	}
	if err := f.SetRowHeight(name, 1, height); err != nil {
		return err
	}

	for r, row := range sh.Rows {
		rowNum := r + 2
		for c, col := range sh.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				return err
			}
			text := row.Text(col)
			style := st.body
			if col == model.ColEnrollmentNumber {
				style = st.text
				if strings.TrimSpace(text) == "" {
					style = st.missing
				}
			}
			if err := f.SetCellStr(name, cell, text); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, style); err != nil {
				return err
			}
			if n := utf8.RuneCountInString(text); n > widths[c] {
				widths[c] = n
			}
		}
		if err := f.SetRowHeight(name, rowNum, height); err != nil {
			return err
		}
	}

	for c := range sh.Columns {
		colName, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if c < visibleCols {
			if err := f.SetColWidth(name, colName, colName, float64(widths[c]+widthPadding)); err != nil {
				return err
			}
			continue
		}
		if err := f.SetColVisible(name, colName, false); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeSheetName 去掉 Excel 不允许的字符并截断到 31 个字符
func sanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidRunes, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fallbackTitle
	}
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
