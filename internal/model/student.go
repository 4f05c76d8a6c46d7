package model

// 学生名单表的固定列
const (
	ColName             = "Name"
	ColYearOfEnrollment = "Year of Enrollment"
	ColEnrollmentNumber = "Student's Enrollment Number"
	ColDateOfEnrollment = "Date of Enrollment"
	ColEligibility      = "Eligibility"
	ColDepartment       = "Department"
)

// 资格状态取值
const (
	Eligible    = "eligible"
	NotEligible = "not eligible"
)

// StudentLayout 学生名单表的建表列顺序（不含 Department）
func StudentLayout(withDepartment bool) []string {
	cols := []string{
		ColName,
		ColYearOfEnrollment,
		ColEnrollmentNumber,
		ColDateOfEnrollment,
		ColEligibility,
	}
	if withDepartment {
		cols = append(cols, ColDepartment)
	}
	return cols
}

// Class 年级
type Class string

const (
	ClassFE  Class = "FE"  // 一年级
	ClassSE  Class = "SE"  // 二年级
	ClassTE  Class = "TE"  // 三年级
	ClassBE  Class = "BE"  // 四年级
	ClassDSE Class = "DSE" // 直升二年级
)

// Classes 所有年级（按学年顺序）
var Classes = []Class{ClassFE, ClassSE, ClassTE, ClassBE, ClassDSE}

// ParseClass 解析年级（大小写不敏感）
func ParseClass(s string) (Class, bool) {
	for _, c := range Classes {
		if equalFoldASCII(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Rank 年级排序序号，未知年级排在最后
func (c Class) Rank() int {
	for i, k := range Classes {
		if k == c {
			return i
		}
	}
	return len(Classes)
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if 'a' <= x && x <= 'z' {
			x -= 'a' - 'A'
		}
		if 'a' <= y && y <= 'z' {
			y -= 'a' - 'A'
		}
		if x != y {
			return false
		}
	}
	return true
}
