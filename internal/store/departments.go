package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/model"
)

// departmentTable 院系表名
const departmentTable = "Department"

// Departments 读取院系清单，按院系编号排序
func (s *Store) Departments(ctx context.Context) ([]model.Department, error) {
	cols, err := s.dialect.quoteAll([]string{"Dept_no", "Dept_Code", "Dept_name"})
	if err != nil {
		return nil, err
	}
	qt, _ := s.dialect.Quote(departmentTable)
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY %s", cols[0], cols[1], cols[2], qt, cols[0])
	records, err := s.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	out := make([]model.Department, 0, len(records))
	for _, r := range records {
		out = append(out, model.Department{
			No:   r.Text("Dept_no"),
			Code: r.Text("Dept_Code"),
			Name: r.Text("Dept_name"),
		})
	}
	return out, nil
}

// DepartmentByName 按院系名称查找（忽略大小写）
func (s *Store) DepartmentByName(ctx context.Context, name string) (model.Department, bool, error) {
	return s.findDepartment(ctx, func(d model.Department) bool {
		return strings.EqualFold(strings.TrimSpace(d.Name), strings.TrimSpace(name))
	})
}

// DepartmentByCode 按院系简称查找（忽略大小写）
func (s *Store) DepartmentByCode(ctx context.Context, code string) (model.Department, bool, error) {
	return s.findDepartment(ctx, func(d model.Department) bool {
		return strings.EqualFold(strings.TrimSpace(d.Code), strings.TrimSpace(code))
	})
}

func (s *Store) findDepartment(ctx context.Context, match func(model.Department) bool) (model.Department, bool, error) {
	depts, err := s.Departments(ctx)
	if err != nil {
		return model.Department{}, false, err
	}
	for _, d := range depts {
		if match(d) {
			return d, true, nil
		}
	}
	return model.Department{}, false, nil
}

// AddDepartment 新增院系
func (s *Store) AddDepartment(ctx context.Context, d model.Department) error {
	if strings.TrimSpace(d.No) == "" || strings.TrimSpace(d.Code) == "" {
		return fmt.Errorf("%w: department number and code are required", ErrMalformedCall)
	}
	cols, err := s.dialect.quoteAll([]string{"Dept_no", "Dept_Code", "Dept_name"})
	if err != nil {
		return err
	}
	qt, _ := s.dialect.Quote(departmentTable)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qt, strings.Join(cols, ", "), s.dialect.Placeholders(1, 3))
	if _, err := s.db.ExecContext(ctx, stmt, d.No, d.Code, d.Name); err != nil {
		return classify("failed to add department", err)
	}
	return nil
}
