package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

type fixture struct {
	ctx   context.Context
	store *store.Store
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "university.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, d := range []model.Department{
		{No: "1", Code: "COMPS", Name: "Computer Engineering"},
		{No: "2", Code: "IT", Name: "Information Technology"},
	} {
		require.NoError(t, s.AddDepartment(ctx, d))
	}

	return &fixture{
		ctx:   ctx,
		store: s,
		svc: New(s, Options{
			Threshold:       70,
			AcademicYear:    "2023-24",
			YearDepartments: []string{"comps", "it"},
		}),
	}
}

// seed 建表并写入行
func (f *fixture) seed(t *testing.T, table string, columns []string, rows ...model.Record) {
	t.Helper()
	require.NoError(t, f.store.CreateTable(f.ctx, table, columns))
	if len(rows) > 0 {
		_, err := f.store.InsertRecords(f.ctx, table, columns, rows)
		require.NoError(t, err)
	}
}

func (f *fixture) rows(t *testing.T, table string) []model.Record {
	t.Helper()
	tbl, err := f.store.SelectAll(f.ctx, table)
	require.NoError(t, err)
	return tbl.Rows
}

func classStudent(name, enrollment string) model.Record {
	return model.Record{
		model.ColName:             name,
		model.ColYearOfEnrollment: "2023-24",
		model.ColEnrollmentNumber: enrollment,
		model.ColDateOfEnrollment: "07/15/2023",
		model.ColEligibility:      model.Eligible,
	}
}

func sheetOf(columns []string, rows ...[]any) *model.Table {
	t := &model.Table{Name: "Sheet1", Columns: columns}
	for _, values := range rows {
		r := make(model.Record, len(columns))
		for i, c := range columns {
			r[c] = values[i]
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func TestNormalizeSelection(t *testing.T) {
	cases := []struct {
		dept      string
		class     model.Class
		wantDept  string
		wantClass model.Class
	}{
		{"Computer Engineering", model.ClassFE, model.AllDepartments, model.ClassFE},
		{"All", model.ClassSE, model.AllDepartments, model.ClassFE},
		{"all", model.ClassDSE, model.AllDepartments, model.ClassDSE},
		{"", model.ClassTE, model.AllDepartments, model.ClassFE},
		{"Computer Engineering", model.ClassTE, "Computer Engineering", model.ClassTE},
	}
	for _, tc := range cases {
		got := NormalizeSelection(tc.dept, tc.class)
		assert.Equal(t, tc.wantDept, got.Department, "%s/%s", tc.dept, tc.class)
		assert.Equal(t, tc.wantClass, got.Class, "%s/%s", tc.dept, tc.class)
	}
}

func TestTargetTable(t *testing.T) {
	f := newFixture(t)

	cases := map[Selection]string{
		NormalizeSelection("All", model.ClassFE):                    "all_fe_2023_24",
		NormalizeSelection("All", model.ClassDSE):                   "all_dse",
		NormalizeSelection("Computer Engineering", model.ClassSE):   "1_COMPS_SE",
		NormalizeSelection("information technology", model.ClassBE): "2_IT_BE",
	}
	for sel, want := range cases {
		got, err := f.svc.TargetTable(f.ctx, sel)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := f.svc.TargetTable(f.ctx, NormalizeSelection("Mechanical", model.ClassSE))
	assert.True(t, errors.Is(err, ErrUnknownDepartment))
}

func TestBuildPRN_RenamesAndNormalizes(t *testing.T) {
	f := newFixture(t)
	sheet := sheetOf([]string{"Student Name", "PRN", "DOJ", "Remarks"},
		[]any{"Asha Rao", "2023001.0", "2023-09-15", "x"},
		[]any{"Ravi Shah", "2023002", "garbage", nil},
	)

	preview, err := f.svc.BuildPRN(f.ctx, sheet, PRNRequest{
		Department: "All",
		Class:      model.ClassFE,
		Columns:    []string{"Student Name", "PRN", "DOJ"},
		AddYear:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "all_fe_2023_24", preview.Table)
	assert.Equal(t, 1, preview.BadDates)
	require.Len(t, preview.Rows, 2)

	first := preview.Rows[0]
	assert.Equal(t, "Asha Rao", first[model.ColName])
	assert.Equal(t, "2023-24", first[model.ColYearOfEnrollment])
	assert.Equal(t, "2023001", first[model.ColEnrollmentNumber])
	assert.Equal(t, "09/15/2023", first[model.ColDateOfEnrollment])
	assert.Equal(t, model.Eligible, first[model.ColEligibility])
	assert.NotContains(t, first, "Remarks")
	assert.Nil(t, preview.Rows[1][model.ColDateOfEnrollment])
}

func TestBuildPRN_Errors(t *testing.T) {
	f := newFixture(t)
	sheet := sheetOf([]string{"Name"}, []any{"Asha"})

	_, err := f.svc.BuildPRN(f.ctx, sheet, PRNRequest{Department: "All", Class: model.ClassFE, Columns: []string{"Missing"}})
	assert.True(t, errors.Is(err, store.ErrSchemaMismatch))

	_, err = f.svc.BuildPRN(f.ctx, sheet, PRNRequest{Department: "All", Class: model.ClassFE})
	assert.True(t, errors.Is(err, store.ErrMalformedCall))

	// 全校 DSE 名单必须带 Department 列
	_, err = f.svc.BuildPRN(f.ctx, sheet, PRNRequest{Department: "All", Class: model.ClassDSE, Columns: []string{"Name"}})
	assert.True(t, errors.Is(err, store.ErrSchemaMismatch))
}

func TestSavePRN_DedupesOnName(t *testing.T) {
	f := newFixture(t)
	sheet := sheetOf([]string{"Name", "Enrollment", "Date", "Department"},
		[]any{"Asha Rao", "D1", "15-07-2023", "COMPS"},
		[]any{"Ravi Shah", "D2", "15-07-2023", "IT"},
	)
	req := PRNRequest{
		Department: "All",
		Class:      model.ClassDSE,
		Columns:    []string{"Name", "Enrollment", "Date"},
		AddYear:    true,
	}

	first, err := f.svc.SavePRN(f.ctx, sheet, req)
	require.NoError(t, err)
	assert.Equal(t, "all_dse", first.Table)
	assert.Equal(t, 2, first.Report.Appended)

	second, err := f.svc.SavePRN(f.ctx, sheet, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Report.Appended)
	assert.Equal(t, 2, second.Report.Skipped)

	rows := f.rows(t, "all_dse")
	require.Len(t, rows, 2)
	assert.Equal(t, "COMPS", rows[0].Text(model.ColDepartment))
	assert.Equal(t, "07/15/2023", rows[0].Text(model.ColDateOfEnrollment))

	logs, err := f.store.RecentMergeLogs(f.ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestMarkDropouts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1_COMPS_SE", model.StudentLayout(false),
		classStudent("Priya Sharma", "E1"),
		classStudent("Pooja Verma", "E2"),
		classStudent("Rahul Mehta", "E3"),
	)
	sheet := sheetOf([]string{"Dropouts"}, []any{"sharma priya"}, []any{"Amit Kumar"}, []any{nil})

	result, err := f.svc.MarkDropouts(f.ctx, sheet, EligibilityRequest{
		SheetColumn: "Dropouts",
		Table:       "1_COMPS_SE",
		TableColumn: model.ColName,
	})
	require.NoError(t, err)
	require.Len(t, result.Matched, 1)
	assert.Equal(t, "Priya Sharma", result.Matched[0].Candidate)
	assert.Equal(t, []string{"Amit Kumar"}, result.Unmatched)
	assert.Equal(t, int64(1), result.Updated)

	status := map[string]string{}
	for _, r := range f.rows(t, "1_COMPS_SE") {
		status[r.Text(model.ColName)] = r.Text(model.ColEligibility)
	}
	assert.Equal(t, model.NotEligible, status["Priya Sharma"])
	assert.Equal(t, model.Eligible, status["Pooja Verma"])
	assert.Equal(t, model.Eligible, status["Rahul Mehta"])
}

func TestApplyHODList(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1_COMPS_TE", model.StudentLayout(false),
		classStudent("Priya Sharma", "E1"),
		classStudent("Rahul Mehta", "E3"),
	)
	sheet := sheetOf([]string{"Approved"}, []any{"priya sharma"}, []any{"priya sharma"}, []any{"Neha Joshi"})

	result, err := f.svc.ApplyHODList(f.ctx, sheet, EligibilityRequest{
		SheetColumn: "Approved",
		Table:       "1_COMPS_TE",
		TableColumn: model.ColName,
	})
	require.NoError(t, err)
	require.Len(t, result.Matched, 1)
	assert.Equal(t, "Priya Sharma", result.Matched[0].Source)
	assert.Equal(t, []string{"Rahul Mehta"}, result.Unmatched)

	status := map[string]string{}
	for _, r := range f.rows(t, "1_COMPS_TE") {
		status[r.Text(model.ColName)] = r.Text(model.ColEligibility)
	}
	assert.Equal(t, model.Eligible, status["Priya Sharma"])
	assert.Equal(t, model.NotEligible, status["Rahul Mehta"])
}

func TestEligibility_MissingColumns(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "plain", []string{"Name"}, model.Record{"Name": "Asha"})
	sheet := sheetOf([]string{"Name"}, []any{"Asha"})

	_, err := f.svc.MarkDropouts(f.ctx, sheet, EligibilityRequest{SheetColumn: "Name", Table: "plain", TableColumn: "Name"})
	assert.True(t, errors.Is(err, store.ErrSchemaMismatch))

	_, err = f.svc.MarkDropouts(f.ctx, sheet, EligibilityRequest{SheetColumn: "Nope", Table: "plain", TableColumn: "Name"})
	assert.True(t, errors.Is(err, store.ErrSchemaMismatch))
}

func seedAllFE(t *testing.T, f *fixture) {
	f.seed(t, "all_fe_2023_24", model.StudentLayout(false),
		classStudent("Priya Sharma", "F1"),
		classStudent("Pooja Verma", "F2"),
		classStudent("Rahul Mehta", "F3"),
	)
}

func TestCompareDepartment(t *testing.T) {
	f := newFixture(t)
	seedAllFE(t, f)
	sheet := sheetOf([]string{"Student"}, []any{"Sharma Priya"}, []any{"Rahul Mehta"}, []any{"Amit Kumar"})
	req := CompareRequest{
		SheetColumn: "Student",
		Table:       "all_fe_2023_24",
		TableColumn: model.ColName,
		Department:  "Computer Engineering",
	}

	result, err := f.svc.CompareDepartment(f.ctx, sheet, req)
	require.NoError(t, err)
	assert.Len(t, result.Matched, 2)
	assert.Equal(t, []string{"Amit Kumar"}, result.Unmatched)
	require.Len(t, result.Reports, 1)
	assert.Equal(t, "1_COMPS_FE", result.Reports[0].Target)
	assert.Equal(t, 2, result.Reports[0].Appended)

	rows := f.rows(t, "1_COMPS_FE")
	require.Len(t, rows, 2)
	assert.Equal(t, "F1", rows[0].Text(model.ColEnrollmentNumber))

	again, err := f.svc.CompareDepartment(f.ctx, sheet, req)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Reports[0].Appended)
	assert.Len(t, f.rows(t, "1_COMPS_FE"), 2)
}

func TestCompareBranchwise(t *testing.T) {
	f := newFixture(t)
	seedAllFE(t, f)
	sheet := sheetOf([]string{"Student", "Branch"},
		[]any{"Priya Sharma", "COMPS"},
		[]any{"Rahul Mehta", "it"},
		[]any{"Pooja Verma", "XYZ"},
		[]any{"Amit Kumar", "COMPS"},
	)

	result, err := f.svc.CompareBranchwise(f.ctx, sheet, CompareRequest{
		SheetColumn:  "Student",
		BranchColumn: "Branch",
		Table:        "all_fe_2023_24",
		TableColumn:  model.ColName,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"XYZ"}, result.UnknownBranches)
	assert.Equal(t, []string{"Amit Kumar"}, result.Unmatched)
	require.Len(t, result.Reports, 2)
	assert.Equal(t, "1_COMPS_FE", result.Reports[0].Target)
	assert.Equal(t, "2_IT_FE", result.Reports[1].Target)

	assert.Equal(t, "Rahul Mehta", f.rows(t, "2_IT_FE")[0].Text(model.ColName))
}

func TestAppendDSE(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "all_dse", model.StudentLayout(true),
		model.Record{model.ColName: "Asha Rao", model.ColEnrollmentNumber: "D1", model.ColDateOfEnrollment: "03/04/2023", model.ColEligibility: model.Eligible, model.ColDepartment: "COMPS"},
		model.Record{model.ColName: "Ravi Shah", model.ColEnrollmentNumber: "D2", model.ColDateOfEnrollment: "2023-07-15", model.ColEligibility: model.Eligible, model.ColDepartment: "COMPS"},
		model.Record{model.ColName: "Meera Iyer", model.ColEnrollmentNumber: "D3", model.ColEligibility: model.Eligible, model.ColDepartment: "IT"},
		model.Record{model.ColName: "Karan Das", model.ColEnrollmentNumber: "D4", model.ColEligibility: model.Eligible, model.ColDepartment: "MECH"},
	)
	// 目标表名大小写不敏感
	f.seed(t, "1_comps_se", model.StudentLayout(false), classStudent("Asha Rao", "D1"))

	result, err := f.svc.AppendDSE(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2_IT_SE"}, result.MissingTables)
	assert.Equal(t, []string{"MECH"}, result.UnknownCodes)
	require.Len(t, result.Reports, 1)
	assert.Equal(t, "1_comps_se", result.Reports[0].Target)
	assert.Equal(t, 1, result.Reports[0].Appended)
	assert.Equal(t, 1, result.Reports[0].Skipped)

	rows := f.rows(t, "1_comps_se")
	require.Len(t, rows, 2)
	assert.Equal(t, "Ravi Shah", rows[1].Text(model.ColName))
	assert.Equal(t, "07/15/2023", rows[1].Text(model.ColDateOfEnrollment))
	assert.NotContains(t, rows[1], model.ColDepartment)
}

func TestAppendDSE_MissingTable(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AppendDSE(f.ctx)
	assert.True(t, errors.Is(err, store.ErrSchemaMismatch))
}

func seedReports(t *testing.T, f *fixture) {
	layout := model.StudentLayout(false)
	f.seed(t, "1_COMPS_SE", layout, classStudent("Asha Rao", "S1"))
	f.seed(t, "1_COMPS_FE", layout, classStudent("Priya Sharma", "F1"), classStudent("Rahul Mehta", "F3"))
	f.seed(t, "1_COMPS_TE", layout)
	f.seed(t, "2_IT_SE", layout, classStudent("Meera Iyer", "S2"))
}

func TestBuildExport_Department(t *testing.T) {
	f := newFixture(t)
	seedReports(t, f)

	exp, err := f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportInstitute, Department: "Computer Engineering"})
	require.NoError(t, err)
	assert.Equal(t, "1_COMPS_Institute_Wise", exp.FileName)
	require.Len(t, exp.Sheets, 1)
	assert.Equal(t, combinedSheet, exp.Sheets[0].Name)
	require.Len(t, exp.Sheets[0].Rows, 3)
	// FE 排在 SE 前
	assert.Equal(t, "Priya Sharma", exp.Sheets[0].Rows[0].Text(model.ColName))

	exp, err = f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportDepartment, Department: "Computer Engineering"})
	require.NoError(t, err)
	assert.Equal(t, "1_COMPS_Department_Wise", exp.FileName)
	require.Len(t, exp.Sheets, 2)
	assert.Equal(t, "FE", exp.Sheets[0].Name)
	assert.Equal(t, "SE", exp.Sheets[1].Name)
}

func TestBuildExport_Year(t *testing.T) {
	f := newFixture(t)
	seedReports(t, f)

	exp, err := f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportYearInstitute, Class: model.ClassSE})
	require.NoError(t, err)
	assert.Equal(t, "SE_Year_Institute_Wise", exp.FileName)
	assert.Len(t, exp.Sheets[0].Rows, 2)

	exp, err = f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportYearDepartment, Class: model.ClassSE})
	require.NoError(t, err)
	assert.Equal(t, "SE_Year_Department_Wise", exp.FileName)
	require.Len(t, exp.Sheets, 2)
	assert.Equal(t, "comps", exp.Sheets[0].Name)
	assert.Equal(t, "it", exp.Sheets[1].Name)

	_, err = f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportYearInstitute, Class: model.ClassBE})
	assert.True(t, errors.Is(err, ErrNothingToExport))

	_, err = f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportYearInstitute, Class: model.ClassDSE})
	assert.True(t, errors.Is(err, store.ErrMalformedCall))
}

func TestBuildExport_Individual(t *testing.T) {
	f := newFixture(t)
	seedReports(t, f)

	exp, err := f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportIndividual, Table: "2_IT_SE"})
	require.NoError(t, err)
	assert.Equal(t, "2_IT_SE", exp.FileName)
	assert.Equal(t, "Sheet1", exp.Sheets[0].Name)

	_, err = f.svc.BuildExport(f.ctx, ExportRequest{Kind: ExportIndividual, Table: "1_COMPS_TE"})
	assert.True(t, errors.Is(err, ErrNothingToExport))

	_, err = f.svc.BuildExport(f.ctx, ExportRequest{Kind: "weekly"})
	assert.True(t, errors.Is(err, store.ErrMalformedCall))
}

func TestSortByClass(t *testing.T) {
	tables := []string{"1_COMPS_BE", "1_COMPS_misc", "1_COMPS_FE", "1_COMPS_TE", "1_COMPS_SE"}
	sortByClass(tables)
	assert.Equal(t, []string{"1_COMPS_FE", "1_COMPS_SE", "1_COMPS_TE", "1_COMPS_BE", "1_COMPS_misc"}, tables)
}
