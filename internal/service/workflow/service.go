// Package workflow 各业务页面的服务实现：PRN 生成、资格判定、名单比对、DSE 分发与报表导出
// 所有操作均不依赖 HTTP 层，可直接调用
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/PoorvaU/prn-extractor/internal/logger"
	"github.com/PoorvaU/prn-extractor/internal/matcher"
	"github.com/PoorvaU/prn-extractor/internal/merger"
	"github.com/PoorvaU/prn-extractor/internal/model"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

var (
	// ErrUnknownDepartment 院系不存在
	ErrUnknownDepartment = errors.New("unknown department")
	// ErrNothingToExport 没有可导出的数据
	ErrNothingToExport = errors.New("nothing to export")
)

// DB 业务页面使用的存储能力，*store.Store 实现该接口
type DB interface {
	merger.KeyStore

	ListTables(ctx context.Context) ([]string, error)
	ResolveTable(ctx context.Context, table string) (string, error)
	SelectAll(ctx context.Context, table string) (*model.Table, error)
	UpdateWhere(ctx context.Context, table, setCol string, setVal any, whereCol string, whereVal any) (int64, error)

	Departments(ctx context.Context) ([]model.Department, error)
	DepartmentByName(ctx context.Context, name string) (model.Department, bool, error)
	DepartmentByCode(ctx context.Context, code string) (model.Department, bool, error)

	CreateMergeLog(ctx context.Context, targetTable, keyColumn, source string) (int64, error)
	CompleteMergeLog(ctx context.Context, id int64, appended, skipped, badDates int, status, errorMessage string) error
}

var _ DB = (*store.Store)(nil)

// Options 业务参数
type Options struct {
	Threshold       int      // 模糊匹配阈值，<=0 使用默认值
	AcademicYear    string   // 写入 Year of Enrollment 的学年
	YearDepartments []string // 按院系分年级导出时的院系简称
}

// Service 业务服务
type Service struct {
	db   DB
	opts Options
}

// New 创建业务服务
func New(db DB, opts Options) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = matcher.DefaultThreshold
	}
	return &Service{db: db, opts: opts}
}

// Options 当前业务参数
func (s *Service) Options() Options {
	return s.opts
}

// matcherFor 请求级阈值（>0）覆盖配置阈值
func (s *Service) matcherFor(threshold int) *matcher.Matcher {
	if threshold > 0 && threshold <= matcher.FullScore {
		return matcher.New(threshold)
	}
	return matcher.New(s.opts.Threshold)
}

// merge 记录合并日志并执行合并
func (s *Service) merge(ctx context.Context, source string, target merger.Target, rows []model.Record) (merger.Report, error) {
	logID, err := s.db.CreateMergeLog(ctx, target.Name, target.KeyColumn, source)
	if err != nil {
		return merger.Report{Target: target.Name}, err
	}

	report, mergeErr := merger.Merge(ctx, s.db, target, rows)

	status, message := "completed", ""
	if mergeErr != nil {
		status, message = "failed", mergeErr.Error()
	}
	if err := s.db.CompleteMergeLog(ctx, logID, report.Appended, report.Skipped, report.BadDates, status, message); err != nil {
		logger.Warn().Err(err).Int64("merge_log_id", logID).Msg("failed to complete merge log")
	}

	event := logger.Info()
	if mergeErr != nil {
		event = logger.Error().Err(mergeErr)
	}
	event.
		Str("source", source).
		Str("table", target.Name).
		Int("appended", report.Appended).
		Int("skipped", report.Skipped).
		Int("bad_dates", report.BadDates).
		Msg("merge finished")

	return report, mergeErr
}

// requireColumn 列不存在时返回 ErrSchemaMismatch
func requireColumn(t *model.Table, column string) error {
	if column == "" {
		return fmt.Errorf("%w: no column selected", store.ErrMalformedCall)
	}
	if !t.HasColumn(column) {
		return fmt.Errorf("%w: column %q not found in %s", store.ErrSchemaMismatch, column, t.Name)
	}
	return nil
}
