package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/model"
)

// keyChunkSize 单条 IN 查询的最大参数个数
const keyChunkSize = 500

// Query 执行参数化查询，每行返回列名 -> 值
// 静态语句使用 ? 占位符，由方言改写
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, classify("failed to query", err)
	}
	defer rows.Close()

	_, records, err := scanRecords(rows)
	return records, err
}

// SelectAll 读取整张表
func (s *Store) SelectAll(ctx context.Context, table string) (*model.Table, error) {
	qt, err := s.dialect.Quote(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+qt)
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to read table %s", table), err)
	}
	defer rows.Close()

	columns, records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return &model.Table{Name: table, Columns: columns, Rows: records}, nil
}

// scanRecords 把结果集转换为记录，[]byte 统一转为 string
func scanRecords(rows *sql.Rows) ([]string, []model.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, classify("failed to read columns", err)
	}

	var records []model.Record
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, classify("failed to scan row", err)
		}
		rec := make(model.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify("failed to iterate rows", err)
	}
	return columns, records, nil
}

// InsertRecords 在单个事务内批量插入，返回插入行数
// 非空值以文本写入（所有业务列均为 VARCHAR），缺失列写 NULL
func (s *Store) InsertRecords(ctx context.Context, table string, columns []string, rows []model.Record) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("%w: no columns to insert into %q", ErrMalformedCall, table)
	}
	qt, err := s.dialect.Quote(table)
	if err != nil {
		return 0, err
	}
	qcols, err := s.dialect.quoteAll(columns)
	if err != nil {
		return 0, err
	}

	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qt, strings.Join(qcols, ", "), s.dialect.Placeholders(1, len(columns)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, classify(fmt.Sprintf("failed to prepare insert into %s", table), err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for n, row := range rows {
		for i, col := range columns {
			args[i] = bindValue(row[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, classify(fmt.Sprintf("failed to insert row %d into %s", n+1, table), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classify("failed to commit insert", err)
	}
	return len(rows), nil
}

func bindValue(v any) any {
	if v == nil {
		return nil
	}
	return model.Stringify(v)
}

// UpdateWhere 把 whereCol = whereVal 的行的 setCol 改为 setVal，返回影响行数
func (s *Store) UpdateWhere(ctx context.Context, table, setCol string, setVal any, whereCol string, whereVal any) (int64, error) {
	qt, err := s.dialect.Quote(table)
	if err != nil {
		return 0, err
	}
	qs, err := s.dialect.Quote(setCol)
	if err != nil {
		return 0, err
	}
	qw, err := s.dialect.Quote(whereCol)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		qt, qs, s.dialect.Placeholder(1), qw, s.dialect.Placeholder(2))
	res, err := s.db.ExecContext(ctx, stmt, bindValue(setVal), bindValue(whereVal))
	if err != nil {
		return 0, classify(fmt.Sprintf("failed to update %s", table), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("failed to read affected rows", err)
	}
	return n, nil
}

// ExistingKeys 查询 column 中已存在的候选值，返回文本形式的集合
// nil 与空白候选值不参与查询；候选值按块参数化查询
func (s *Store) ExistingKeys(ctx context.Context, table, column string, values []any) (map[string]struct{}, error) {
	qt, err := s.dialect.Quote(table)
	if err != nil {
		return nil, err
	}
	qc, err := s.dialect.Quote(column)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(values))
	keys := make([]any, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		k := model.Stringify(v)
		if strings.TrimSpace(k) == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	existing := make(map[string]struct{})
	for start := 0; start < len(keys); start += keyChunkSize {
		end := min(start+keyChunkSize, len(keys))
		chunk := keys[start:end]

		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
			qc, qt, qc, s.dialect.Placeholders(1, len(chunk)))
		rows, err := s.db.QueryContext(ctx, query, chunk...)
		if err != nil {
			return nil, classify(fmt.Sprintf("failed to query existing keys in %s", table), err)
		}
		for rows.Next() {
			var v any
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, classify("failed to scan key", err)
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			existing[model.Stringify(v)] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, classify("failed to iterate keys", err)
		}
	}
	return existing, nil
}
