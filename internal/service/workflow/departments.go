package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/model"
)

// Selection 页面上选择的院系与年级（已规范化）
type Selection struct {
	Department string      `json:"department"`
	Class      model.Class `json:"class"`
}

// IsAll 是否选择了“全部”院系
func (sel Selection) IsAll() bool {
	return strings.EqualFold(sel.Department, model.AllDepartments)
}

// AllDSE 全校直升二年级名单（带 Department 列）
func (sel Selection) AllDSE() bool {
	return sel.IsAll() && sel.Class == model.ClassDSE
}

// NormalizeSelection 规范化院系/年级组合
// 一年级只按全校建表；选择全部院系时除 DSE 外都按一年级处理
func NormalizeSelection(department string, class model.Class) Selection {
	department = strings.TrimSpace(department)
	if department == "" {
		department = model.AllDepartments
	}
	sel := Selection{Department: department, Class: class}
	switch {
	case class == model.ClassFE:
		sel.Department = model.AllDepartments
	case sel.IsAll() && class != model.ClassDSE:
		sel.Class = model.ClassFE
	}
	if sel.IsAll() {
		sel.Department = model.AllDepartments
	}
	return sel
}

// Departments 院系清单
func (s *Service) Departments(ctx context.Context) ([]model.Department, error) {
	return s.db.Departments(ctx)
}

// TargetTable 选择对应的目标表名
func (s *Service) TargetTable(ctx context.Context, sel Selection) (string, error) {
	switch {
	case sel.IsAll() && sel.Class == model.ClassFE:
		return model.AllFETableName(s.opts.AcademicYear), nil
	case sel.AllDSE():
		return model.AllDSETable, nil
	}

	dept, err := s.department(ctx, sel.Department)
	if err != nil {
		return "", err
	}
	return dept.TableName(sel.Class), nil
}

// department 按名称查找院系，不存在时返回 ErrUnknownDepartment
func (s *Service) department(ctx context.Context, name string) (model.Department, error) {
	dept, ok, err := s.db.DepartmentByName(ctx, name)
	if err != nil {
		return model.Department{}, err
	}
	if !ok {
		return model.Department{}, fmt.Errorf("%w: %q", ErrUnknownDepartment, name)
	}
	return dept, nil
}
