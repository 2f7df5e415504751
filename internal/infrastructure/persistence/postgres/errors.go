package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"linkhub-api/internal/domain/repository"
)

// PostgreSQL SQLSTATE
const (
	sqlStateUniqueViolation       = "23505"
	sqlStateInsufficientPrivilege = "42501"
)

// classify 将驱动错误归类为仓储错误
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNoTenantScope) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	code, msg := sqlState(err)
	switch {
	case code == sqlStateUniqueViolation:
		return fmt.Errorf("%s: %w: %s", op, repository.ErrConflict, msg)
	case code == sqlStateInsufficientPrivilege, strings.Contains(msg, "row-level security"):
		return fmt.Errorf("%s: %w: %s", op, repository.ErrRowSecurity, msg)
	}
	return &repository.QueryError{Op: op, Err: err}
}

// sqlState 提取两种驱动的 SQLSTATE 与错误信息
func sqlState(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Message
	}
	return "", err.Error()
}
