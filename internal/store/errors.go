package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrConnectivity 存储不可达（连接失败、连接中断）
	ErrConnectivity = errors.New("storage unreachable")
	// ErrSchemaMismatch 表或列与预期不符
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrMalformedCall 调用参数非法（空键列、非法标识符等）
	ErrMalformedCall = errors.New("malformed call")
)

// classify 为驱动错误挂上哨兵错误，op 描述失败的操作
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectivity) || errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrMalformedCall) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isConnectivity(err) {
		return fmt.Errorf("%w: %s: %w", ErrConnectivity, op, err)
	}
	if isSchemaMismatch(err) {
		return fmt.Errorf("%w: %s: %w", ErrSchemaMismatch, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isSchemaMismatch(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1054 未知列，1146 表不存在
		return myErr.Number == 1054 || myErr.Number == 1146
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "has no column named") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "does not exist")
}
