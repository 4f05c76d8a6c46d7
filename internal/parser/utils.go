package parser

import (
	"regexp"
	"strings"
	"time"
)

// CanonicalDateLayout 日期统一输出格式 MM/DD/YYYY
const CanonicalDateLayout = "01/02/2006"

// DateLayouts 日期输入格式，按优先级排列，第一个解析成功的生效
// 输入先转为大写，月份缩写与 AM/PM 因此不区分大小写
var DateLayouts = []string{
	"Jan 2 2006 3:04PM",  // Mon DD YYYY HH:MMam/pm
	"2006-1-2",           // YYYY-MM-DD
	"1-2-2006",           // MM-DD-YYYY
	"2-1-2006",           // DD-MM-YYYY
	"2006/1/2",           // YYYY/MM/DD
	"2/1/2006",           // DD/MM/YYYY
	"2-Jan-2006",         // DD-Mon-YYYY
	"1/2/2006",           // MM/DD/YYYY
	"2006-1-2 15:04:05",  // YYYY-MM-DD HH:MM:SS
	"1-2-2006 15:04:05",  // MM-DD-YYYY HH:MM:SS
	"2006-1-2T15:04:05",  // ISO 8601
	"2006-1-2T15:04:05Z", // ISO 8601 UTC
	"01-02-06",           // Excel 内置格式 mm-dd-yy
	"1/2/06",             // Excel 区域格式 m/d/yy
}

// ParseDate 按 DateLayouts 优先级解析日期
func ParseDate(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate 将日期规范为 MM/DD/YYYY；无法识别时返回 ok=false（调用方写入空值）
func NormalizeDate(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(CanonicalDateLayout), true
}

// monthFirstLayout 月在前的斜杠日期，月、日可不补零
const monthFirstLayout = "1/2/2006"

// ParseMonthFirstDate 按 MM/DD/YYYY 解析（允许 1/2/2006 这样不补零的写法）
// 已按月在前保存的日期用它读取，避免被 DD/MM 优先级翻转
func ParseMonthFirstDate(s string) (time.Time, bool) {
	t, err := time.Parse(monthFirstLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeEnrollmentNumber 去掉数值单元格带出的 ".0" 尾巴
func NormalizeEnrollmentNumber(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名：去掉首尾空白与换行，压缩连续空白为一个空格
func NormalizeColumnName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\t", " ")
	return spaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
}

// FindColumn 按名称查找列（忽略大小写与多余空白），返回实际列名
func FindColumn(columns []string, name string) (string, bool) {
	want := NormalizeColumnName(name)
	for _, c := range columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range columns {
		if strings.EqualFold(NormalizeColumnName(c), want) {
			return c, true
		}
	}
	return "", false
}
