package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record 一行数据：列名 -> 标量值（string / 数值 / nil）
type Record map[string]any

// Clone 浅拷贝一行
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Text 返回列的文本值，缺失或 nil 时返回空串
func (r Record) Text(column string) string {
	v, ok := r[column]
	if !ok {
		return ""
	}
	return Stringify(v)
}

// IsBlank 判断列值是否为空（缺失、nil 或仅空白）
func (r Record) IsBlank(column string) bool {
	v, ok := r[column]
	if !ok || v == nil {
		return true
	}
	return strings.TrimSpace(Stringify(v)) == ""
}

// Table 一张表（数据库表或上传的 Sheet）
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// HasColumn 判断列是否存在（精确匹配）
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ColumnValues 取出某一列的全部值（保持行顺序）
func (t *Table) ColumnValues(column string) []any {
	out := make([]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r[column])
	}
	return out
}

// Stringify 将标量转成文本，nil 视为空串
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
