package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MergeLog 一次合并写入的记录
type MergeLog struct {
	ID           int64      `json:"id"`
	TargetTable  string     `json:"targetTable"`
	KeyColumn    string     `json:"keyColumn"`
	Source       string     `json:"source"`
	Appended     int        `json:"appended"`
	Skipped      int        `json:"skipped"`
	BadDates     int        `json:"badDates"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// CreateMergeLog 创建合并日志，返回 id
func (s *Store) CreateMergeLog(ctx context.Context, targetTable, keyColumn, source string) (int64, error) {
	const insert = `
		INSERT INTO merge_logs (target_table, key_column, source, status, error_message)
		VALUES (?, ?, ?, 'processing', '')`

	if s.dialect == Postgres {
		var id int64
		err := s.db.QueryRowContext(ctx, s.dialect.Rebind(insert)+" RETURNING id",
			targetTable, keyColumn, source).Scan(&id)
		if err != nil {
			return 0, classify("failed to create merge log", err)
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, insert, targetTable, keyColumn, source)
	if err != nil {
		return 0, classify("failed to create merge log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get merge log id: %w", err)
	}
	return id, nil
}

// CompleteMergeLog 写入合并结果
func (s *Store) CompleteMergeLog(ctx context.Context, id int64, appended, skipped, badDates int, status, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE merge_logs SET
			appended = ?,
			skipped = ?,
			bad_dates = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?`), appended, skipped, badDates, status, errorMessage, id)
	if err != nil {
		return classify("failed to update merge log", err)
	}
	return nil
}

// RecentMergeLogs 最近的合并日志，最新在前
func (s *Store) RecentMergeLogs(ctx context.Context, limit int) ([]MergeLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT id, target_table, key_column, source, appended, skipped, bad_dates,
			status, COALESCE(error_message, ''), created_at, completed_at
		FROM merge_logs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, classify("failed to list merge logs", err)
	}
	defer rows.Close()

	var logs []MergeLog
	for rows.Next() {
		var (
			l         MergeLog
			created   sql.NullTime
			completed sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.TargetTable, &l.KeyColumn, &l.Source, &l.Appended, &l.Skipped,
			&l.BadDates, &l.Status, &l.ErrorMessage, &created, &completed); err != nil {
			return nil, classify("failed to scan merge log", err)
		}
		if created.Valid {
			l.CreatedAt = created.Time
		}
		if completed.Valid {
			t := completed.Time
			l.CompletedAt = &t
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("failed to list merge logs", err)
	}
	return logs, nil
}
