// 包 migrate：首次运行时创建会话状态表
package migrate

import (
	"context"
	"database/sql"

	"geocoin/internal/logger"
)

// StateTable：会话记录表名，PostgreSQL 与 SQLite 共用
const StateTable = "_geocoin_state"

// EnsureSchema：创建会话记录表
// 约束：语句需同时兼容 PostgreSQL 与 SQLite；使用 IF NOT EXISTS，可重复执行
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + StateTable + ` (
            state_key TEXT PRIMARY KEY,
            state_value TEXT NOT NULL,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
