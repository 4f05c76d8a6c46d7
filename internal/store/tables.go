package store

import (
	"context"
	"fmt"
	"strings"
)

// internalTables 不出现在表清单中的内部表
var internalTables = map[string]bool{
	"merge_logs": true,
}

// ListTables 列出所有用户表（不含内部表）
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listTablesQuery())
	if err != nil {
		return nil, classify("failed to list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify("failed to scan table name", err)
		}
		if internalTables[strings.ToLower(name)] {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("failed to list tables", err)
	}
	return tables, nil
}

// ListColumns 按定义顺序列出表的列
// 表不存在时返回 ErrSchemaMismatch
func (s *Store) ListColumns(ctx context.Context, table string) ([]string, error) {
	if _, err := s.dialect.Quote(table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.listColumnsQuery(), table)
	if err != nil {
		return nil, classify("failed to list columns", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify("failed to scan column name", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("failed to list columns", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %q not found", ErrSchemaMismatch, table)
	}
	return columns, nil
}

// TableExists 表是否存在（精确匹配名称）
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	name, err := s.ResolveTable(ctx, table)
	if err != nil {
		return false, err
	}
	return name == table, nil
}

// ResolveTable 忽略大小写查找表，返回库中的实际名称；不存在时返回空串
// 精确匹配优先
func (s *Store) ResolveTable(ctx context.Context, table string) (string, error) {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return "", err
	}
	found := ""
	for _, t := range tables {
		if t == table {
			return t, nil
		}
		if found == "" && strings.EqualFold(t, table) {
			found = t
		}
	}
	return found, nil
}

// CreateTable 表不存在时按列清单建表，所有列为 VARCHAR(255)
func (s *Store) CreateTable(ctx context.Context, table string, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: no columns for table %q", ErrMalformedCall, table)
	}
	qt, err := s.dialect.Quote(table)
	if err != nil {
		return err
	}
	qcols, err := s.dialect.quoteAll(columns)
	if err != nil {
		return err
	}

	defs := make([]string, len(qcols))
	for i, c := range qcols {
		defs[i] = c + " VARCHAR(255)"
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qt, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return classify(fmt.Sprintf("failed to create table %s", table), err)
	}
	return nil
}
