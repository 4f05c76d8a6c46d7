package store

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/PoorvaU/prn-extractor/internal/config"
)

// Dialect SQL 方言：标识符引用、占位符与目录查询的差异
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "pgx"
)

// ParseDialect 由配置中的 driver 名得到方言
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	}
	return "", fmt.Errorf("%w: unsupported database driver %q", ErrMalformedCall, driver)
}

// Quote 引用标识符（表名、列名）
// 标识符中的引号按方言规则转义，空标识符与包含 NUL 的标识符视为非法调用
func (d Dialect) Quote(ident string) (string, error) {
	if strings.TrimSpace(ident) == "" || strings.ContainsRune(ident, 0) {
		return "", fmt.Errorf("%w: invalid identifier %q", ErrMalformedCall, ident)
	}
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`", nil
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`, nil
}

// quoteAll 依次引用多个标识符
func (d Dialect) quoteAll(idents []string) ([]string, error) {
	out := make([]string, len(idents))
	for i, ident := range idents {
		q, err := d.Quote(ident)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// Placeholder 第 n 个（从 1 开始）绑定参数
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders 从第 start 个开始的 count 个占位符，逗号分隔
func (d Dialect) Placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// Rebind 把 ? 占位符改写为方言占位符（仅用于不含字符串字面量 ? 的静态语句）
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// listTablesQuery 列出用户表
func (d Dialect) listTablesQuery() string {
	switch d {
	case MySQL:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
	case Postgres:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name"
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

// listColumnsQuery 列出表的列，按定义顺序
func (d Dialect) listColumnsQuery() string {
	switch d {
	case MySQL:
		return "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
	case Postgres:
		return "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position"
	}
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
}

// schemaFile 方言对应的内嵌建表脚本
func (d Dialect) schemaFile() string {
	switch d {
	case MySQL:
		return "schema/mysql.sql"
	case Postgres:
		return "schema/postgres.sql"
	}
	return "schema/sqlite.sql"
}

// DataSourceName 由数据库配置拼出驱动连接串
// sqlite 的相对路径以 dataDir 为基准
func DataSourceName(cfg config.DatabaseConfig, dataDir string) (Dialect, string, error) {
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return "", "", err
	}
	if cfg.DSN != "" {
		return d, cfg.DSN, nil
	}

	switch d {
	case MySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(hostOrLocal(cfg.Host), strconv.Itoa(portOr(cfg.Port, 3306)))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		return d, mc.FormatDSN(), nil
	case Postgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(hostOrLocal(cfg.Host), strconv.Itoa(portOr(cfg.Port, 5432))),
			Path:   "/" + cfg.Name,
		}
		return d, u.String(), nil
	}

	path := cfg.Path
	if path == "" {
		path = "university.db"
	}
	if !filepath.IsAbs(path) && dataDir != "" {
		path = filepath.Join(dataDir, path)
	}
	return d, path, nil
}

func hostOrLocal(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}

func portOr(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}
