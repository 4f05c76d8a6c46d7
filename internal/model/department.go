package model

import (
	"fmt"
	"strings"
)

// AllDepartments 部门下拉框中的“全部”
const AllDepartments = "All"

// Department 院系（Department 表的一行）
type Department struct {
	No   string `json:"deptNo"`   // Dept_no
	Code string `json:"deptCode"` // Dept_Code
	Name string `json:"deptName"` // Dept_name
}

// TableName 院系年级表名：{Dept_no}_{Dept_Code}_{Class}
func (d Department) TableName(class Class) string {
	return fmt.Sprintf("%s_%s_%s", d.No, d.Code, class)
}

// TablePrefix 院系所有年级表的共同前缀
func (d Department) TablePrefix() string {
	return fmt.Sprintf("%s_%s_", d.No, d.Code)
}

// AllFETableName 全校一年级总表名，例如 2023-24 -> all_fe_2023_24
func AllFETableName(academicYear string) string {
	return "all_fe_" + strings.ReplaceAll(academicYear, "-", "_")
}

// AllDSETable 全校直升二年级总表
const AllDSETable = "all_dse"
