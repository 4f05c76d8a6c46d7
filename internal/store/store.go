package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/PoorvaU/prn-extractor/internal/config"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Store 关系数据库存储层（sqlite3 / mysql / pgx）
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open 按数据库配置打开连接并初始化内部表
// dataDir 用于解析 sqlite 的相对路径
func Open(ctx context.Context, cfg config.DatabaseConfig, dataDir string) (*Store, error) {
	dialect, dsn, err := DataSourceName(cfg, dataDir)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		return openSQLite(ctx, dsn)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return initStore(ctx, db, dialect)
}

// New 打开 sqlite 数据库文件（测试与单机部署）
func New(dbPath string) (*Store, error) {
	return openSQLite(context.Background(), dbPath)
}

func openSQLite(ctx context.Context, dbPath string) (*Store, error) {
	// 确保数据库所在目录存在
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open(string(SQLite), dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite 建议单连接
	db.SetMaxIdleConns(1)

	return initStore(ctx, db, SQLite)
}

func initStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify("failed to ping database", err)
	}

	store := &Store{db: db, dialect: dialect}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema 执行内嵌建表脚本
// MySQL 驱动默认不允许一次执行多条语句，这里逐条执行
func (s *Store) initSchema(ctx context.Context) error {
	name := s.dialect.schemaFile()
	schemaSQL, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	for _, stmt := range strings.Split(string(schemaSQL), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classify("failed to execute schema", err)
		}
	}
	return nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dialect 当前方言
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping 检查连接
func (s *Store) Ping(ctx context.Context) error {
	return classify("failed to ping database", s.db.PingContext(ctx))
}
