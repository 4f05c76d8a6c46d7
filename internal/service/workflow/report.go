package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/exporter"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

// ExportKind 导出类型
type ExportKind string

const (
	ExportInstitute      ExportKind = "institute"       // 院系全部年级合并为一个 Sheet
	ExportDepartment     ExportKind = "department"      // 院系每个年级一个 Sheet
	ExportIndividual     ExportKind = "individual"      // 单表
	ExportYearInstitute  ExportKind = "year-institute"  // 某年级全部院系合并
	ExportYearDepartment ExportKind = "year-department" // 某年级每个院系一个 Sheet
)

const combinedSheet = "Combined Data"

// ExportRequest 导出请求
type ExportRequest struct {
	Kind       ExportKind  `json:"kind"`
	Department string      `json:"department"` // institute / department
	Class      model.Class `json:"class"`      // year-institute / year-department
	Table      string      `json:"table"`      // individual
}

// Export 待写出的报表
type Export struct {
	FileName string           `json:"fileName"` // 不含扩展名
	Sheets   []exporter.Sheet `json:"-"`
}

// BuildExport 组装报表；没有数据时返回 ErrNothingToExport
func (s *Service) BuildExport(ctx context.Context, req ExportRequest) (*Export, error) {
	switch req.Kind {
	case ExportInstitute, ExportDepartment:
		return s.exportDepartment(ctx, req)
	case ExportIndividual:
		return s.exportIndividual(ctx, req.Table)
	case ExportYearInstitute:
		return s.exportYearInstitute(ctx, req.Class)
	case ExportYearDepartment:
		return s.exportYearDepartment(ctx, req.Class)
	}
	return nil, fmt.Errorf("%w: unknown export kind %q", store.ErrMalformedCall, req.Kind)
}

func (s *Service) exportDepartment(ctx context.Context, req ExportRequest) (*Export, error) {
	dept, err := s.department(ctx, req.Department)
	if err != nil {
		return nil, err
	}
	names, err := s.tablesWhere(ctx, func(t string) bool {
		return hasPrefixFold(t, dept.TablePrefix())
	})
	if err != nil {
		return nil, err
	}
	sortByClass(names)

	tables, err := s.loadNonEmpty(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no data for %s", ErrNothingToExport, dept.Name)
	}

	prefix := strings.TrimSuffix(dept.TablePrefix(), "_")
	if req.Kind == ExportInstitute {
		return &Export{
			FileName: prefix + "_Institute_Wise",
			Sheets:   []exporter.Sheet{exporter.SheetFromTable(combinedSheet, concatTables(tables))},
		}, nil
	}

	sheets := make([]exporter.Sheet, 0, len(tables))
	for _, t := range tables {
		sheets = append(sheets, exporter.SheetFromTable(classSuffix(t.Name), t))
	}
	return &Export{FileName: prefix + "_Department_Wise", Sheets: sheets}, nil
}

func (s *Service) exportIndividual(ctx context.Context, table string) (*Export, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("%w: no table selected", store.ErrMalformedCall)
	}
	t, err := s.db.SelectAll(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%w: table %s is empty", ErrNothingToExport, table)
	}
	return &Export{FileName: table, Sheets: []exporter.Sheet{exporter.SheetFromTable("Sheet1", t)}}, nil
}

func (s *Service) exportYearInstitute(ctx context.Context, class model.Class) (*Export, error) {
	if err := requireYearClass(class); err != nil {
		return nil, err
	}
	suffix := "_" + strings.ToLower(string(class))
	names, err := s.tablesWhere(ctx, func(t string) bool {
		return strings.HasSuffix(strings.ToLower(t), suffix)
	})
	if err != nil {
		return nil, err
	}

	tables, err := s.loadNonEmpty(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables found for %s", ErrNothingToExport, class)
	}
	return &Export{
		FileName: string(class) + "_Year_Institute_Wise",
		Sheets:   []exporter.Sheet{exporter.SheetFromTable(combinedSheet, concatTables(tables))},
	}, nil
}

func (s *Service) exportYearDepartment(ctx context.Context, class model.Class) (*Export, error) {
	if err := requireYearClass(class); err != nil {
		return nil, err
	}
	all, err := s.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var sheets []exporter.Sheet
	for _, short := range s.opts.YearDepartments {
		suffix := strings.ToLower(short + "_" + string(class))
		var names []string
		for _, t := range all {
			if strings.HasSuffix(strings.ToLower(t), suffix) {
				names = append(names, t)
			}
		}
		tables, err := s.loadNonEmpty(ctx, names)
		if err != nil {
			return nil, err
		}
		if len(tables) == 0 {
			continue
		}
		sheets = append(sheets, exporter.SheetFromTable(short, concatTables(tables)))
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no data found for %s", ErrNothingToExport, class)
	}
	return &Export{FileName: string(class) + "_Year_Department_Wise", Sheets: sheets}, nil
}

func requireYearClass(class model.Class) error {
	switch class {
	case model.ClassFE, model.ClassSE, model.ClassTE, model.ClassBE:
		return nil
	}
	return fmt.Errorf("%w: class must be one of FE, SE, TE, BE", store.ErrMalformedCall)
}

func (s *Service) tablesWhere(ctx context.Context, keep func(string) bool) ([]string, error) {
	all, err := s.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, t := range all {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// loadNonEmpty 依次读取表，跳过空表
func (s *Service) loadNonEmpty(ctx context.Context, names []string) ([]*model.Table, error) {
	var out []*model.Table
	for _, name := range names {
		t, err := s.db.SelectAll(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(t.Rows) > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

// concatTables 纵向拼接，列取并集（按首次出现顺序），缺失值为空
func concatTables(tables []*model.Table) *model.Table {
	out := &model.Table{Name: combinedSheet}
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// classSuffix 表名最后一段
func classSuffix(table string) string {
	if i := strings.LastIndex(table, "_"); i >= 0 {
		return table[i+1:]
	}
	return table
}

// sortByClass 按 FE、SE、TE、BE 排序，其余表排在后面
func sortByClass(tables []string) {
	rank := func(t string) int {
		c, ok := model.ParseClass(classSuffix(t))
		if !ok {
			return len(model.Classes)
		}
		return c.Rank()
	}
	sort.SliceStable(tables, func(i, j int) bool {
		ri, rj := rank(tables[i]), rank(tables[j])
		if ri != rj {
			return ri < rj
		}
		return tables[i] < tables[j]
	})
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
