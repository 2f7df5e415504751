package postgres

import (
	"context"
	"fmt"
	"strings"
)

const rowSecuritySQL = `
SELECT c.relname, c.relrowsecurity, c.relforcerowsecurity,
       (SELECT count(*) FROM pg_policy p WHERE p.polrelid = c.oid)
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = current_schema()
  AND c.relname = ANY(string_to_array($1, ','))`

const roleBypassSQL = `SELECT rolsuper OR rolbypassrls FROM pg_roles WHERE rolname = current_user`

// TableSecurity 单张表的行级安全状态
type TableSecurity struct {
	Table       string
	Enabled     bool
	Forced      bool
	PolicyCount int64
}

// VerifyRowSecurity 启动自检：受保护的表必须启用并强制 RLS 且至少有一条策略，
// 当前角色不得绕过 RLS
func (c *Client) VerifyRowSecurity(ctx context.Context, tables []string) error {
	ctx, span := tracer.Start(ctx, "postgres.VerifyRowSecurity")
	defer span.End()

	if len(tables) == 0 {
		return nil
	}

	found := make(map[string]TableSecurity, len(tables))
	var bypass bool
	err := c.withConn(ctx, func(q Querier) error {
		rows, err := q.Query(ctx, rowSecuritySQL, strings.Join(tables, ","))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ts TableSecurity
			if err := rows.Scan(&ts.Table, &ts.Enabled, &ts.Forced, &ts.PolicyCount); err != nil {
				return err
			}
			found[ts.Table] = ts
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return q.QueryRow(ctx, roleBypassSQL).Scan(&bypass)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to inspect row security: %w", err)
	}

	var problems []string
	if bypass {
		problems = append(problems, "current role is superuser or has BYPASSRLS")
	}
	for _, table := range tables {
		ts, ok := found[table]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s: table not found", table))
		case !ts.Enabled:
			problems = append(problems, fmt.Sprintf("%s: row level security disabled", table))
		case !ts.Forced:
			problems = append(problems, fmt.Sprintf("%s: row level security not forced", table))
		case ts.PolicyCount == 0:
			problems = append(problems, fmt.Sprintf("%s: no policies", table))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("row security check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
