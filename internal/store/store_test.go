package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoorvaU/prn-extractor/internal/config"
	"github.com/PoorvaU/prn-extractor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestQuote(t *testing.T) {
	q, err := SQLite.Quote(`Student's Enrollment Number`)
	require.NoError(t, err)
	assert.Equal(t, `"Student's Enrollment Number"`, q)

	q, err = SQLite.Quote(`a"b`)
	require.NoError(t, err)
	assert.Equal(t, `"a""b"`, q)

	q, err = MySQL.Quote("1_COMPS_FE")
	require.NoError(t, err)
	assert.Equal(t, "`1_COMPS_FE`", q)

	_, err = Postgres.Quote("  ")
	assert.True(t, errors.Is(err, ErrMalformedCall))
}

func TestPlaceholdersAndRebind(t *testing.T) {
	assert.Equal(t, "?, ?, ?", SQLite.Placeholders(1, 3))
	assert.Equal(t, "$2, $3", Postgres.Placeholders(2, 2))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", Postgres.Rebind("SELECT a FROM t WHERE b = ? AND c = ?"))
	assert.Equal(t, "SELECT ?", MySQL.Rebind("SELECT ?"))
}

func TestDataSourceName(t *testing.T) {
	d, dsn, err := DataSourceName(config.DatabaseConfig{Driver: "sqlite3", Path: "university.db"}, "/srv/data")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)
	assert.Equal(t, filepath.Join("/srv/data", "university.db"), dsn)

	d, dsn, err = DataSourceName(config.DatabaseConfig{
		Driver: "mysql", Host: "db", User: "staff", Password: "pw", Name: "University",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, MySQL, d)
	assert.Contains(t, dsn, "staff:pw@tcp(db:3306)/University")

	d, dsn, err = DataSourceName(config.DatabaseConfig{
		Driver: "pgx", Host: "pg", Port: 5433, User: "staff", Password: "pw", Name: "university",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "postgres://staff:pw@pg:5433/university", dsn)

	_, _, err = DataSourceName(config.DatabaseConfig{Driver: "oracle"}, "")
	assert.True(t, errors.Is(err, ErrMalformedCall))
}

func TestCreateInsertAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cols := model.StudentLayout(false)
	require.NoError(t, s.CreateTable(ctx, "1_COMPS_SE", cols))
	// 重复建表无副作用
	require.NoError(t, s.CreateTable(ctx, "1_COMPS_SE", cols))

	n, err := s.InsertRecords(ctx, "1_COMPS_SE", cols, []model.Record{
		{model.ColName: "Asha Rao", model.ColEnrollmentNumber: "E123", model.ColEligibility: model.Eligible},
		{model.ColName: "Ravi Shah", model.ColEnrollmentNumber: 124, model.ColEligibility: model.Eligible},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "1_COMPS_SE")
	assert.NotContains(t, tables, "merge_logs")

	gotCols, err := s.ListColumns(ctx, "1_COMPS_SE")
	require.NoError(t, err)
	assert.Equal(t, cols, gotCols)

	tbl, err := s.SelectAll(ctx, "1_COMPS_SE")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "124", tbl.Rows[1].Text(model.ColEnrollmentNumber))
	assert.Nil(t, tbl.Rows[0][model.ColDateOfEnrollment])

	exists, err := s.TableExists(ctx, "1_COMPS_SE")
	require.NoError(t, err)
	assert.True(t, exists)

	resolved, err := s.ResolveTable(ctx, "1_comps_se")
	require.NoError(t, err)
	assert.Equal(t, "1_COMPS_SE", resolved)
}

func TestListColumns_MissingTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ListColumns(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestInsertRecords_UnknownColumn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "t", []string{"Name"}))

	_, err := s.InsertRecords(ctx, "t", []string{"Name", "Missing"}, []model.Record{{"Name": "x"}})
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestExistingKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "t", []string{"Key"}))

	rows := make([]model.Record, 0, 1200)
	for i := 0; i < 1200; i++ {
		rows = append(rows, model.Record{"Key": i})
	}
	_, err := s.InsertRecords(ctx, "t", []string{"Key"}, rows)
	require.NoError(t, err)

	candidates := []any{"5", 1199, nil, "", "missing"}
	for i := 0; i < 1100; i++ {
		candidates = append(candidates, i)
	}
	keys, err := s.ExistingKeys(ctx, "t", "Key", candidates)
	require.NoError(t, err)
	assert.Len(t, keys, 1100+1)
	assert.Contains(t, keys, "5")
	assert.Contains(t, keys, "1199")
	assert.NotContains(t, keys, "missing")
}

func TestUpdateWhere(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cols := []string{model.ColName, model.ColEligibility}
	require.NoError(t, s.CreateTable(ctx, "t", cols))
	_, err := s.InsertRecords(ctx, "t", cols, []model.Record{
		{model.ColName: "Robert'); DROP TABLE t;--", model.ColEligibility: model.Eligible},
		{model.ColName: "Asha", model.ColEligibility: model.Eligible},
	})
	require.NoError(t, err)

	n, err := s.UpdateWhere(ctx, "t", model.ColEligibility, model.NotEligible, model.ColName, "Robert'); DROP TABLE t;--")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	records, err := s.Query(ctx, `SELECT "Eligibility" FROM "t" WHERE "Name" = ?`, "Asha")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Eligible, records[0].Text(model.ColEligibility))
}

func TestDepartments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddDepartment(ctx, model.Department{No: "1", Code: "COMPS", Name: "Computer Engineering"}))
	require.NoError(t, s.AddDepartment(ctx, model.Department{No: "2", Code: "IT", Name: "Information Technology"}))

	depts, err := s.Departments(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 2)
	assert.Equal(t, "COMPS", depts[0].Code)

	d, ok, err := s.DepartmentByName(ctx, "information technology")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", d.No)

	_, ok, err = s.DepartmentByCode(ctx, "MECH")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.AddDepartment(ctx, model.Department{Name: "No code"})
	assert.True(t, errors.Is(err, ErrMalformedCall))
}

func TestSchema_CreatesDepartmentForEveryDialect(t *testing.T) {
	for _, d := range []Dialect{SQLite, MySQL, Postgres} {
		data, err := schemaFS.ReadFile(d.schemaFile())
		require.NoError(t, err, d)

		qt, err := d.Quote(departmentTable)
		require.NoError(t, err)
		assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS "+qt, d)
		for _, col := range []string{"Dept_no", "Dept_Code", "Dept_name"} {
			qc, err := d.Quote(col)
			require.NoError(t, err)
			assert.Contains(t, string(data), qc, d)
		}
	}
}

func TestDepartments_FreshDatabase(t *testing.T) {
	s := newTestStore(t)

	depts, err := s.Departments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, depts)
}

func TestMergeLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateMergeLog(ctx, "1_COMPS_SE", model.ColEnrollmentNumber, "dse")
	require.NoError(t, err)
	require.NoError(t, s.CompleteMergeLog(ctx, id, 3, 1, 0, "completed", ""))

	logs, err := s.RecentMergeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 3, logs[0].Appended)
	assert.Equal(t, 1, logs[0].Skipped)
	assert.Equal(t, "completed", logs[0].Status)
	assert.NotNil(t, logs[0].CompletedAt)
}
