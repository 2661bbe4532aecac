package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"geocoin/internal/migrate"
)

// Dialect：SQL 方言，仅影响占位符写法
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// SQLKV：关系库后端，记录保存在 migrate.StateTable 中的一行
type SQLKV struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLKV：建表并返回后端
func NewSQLKV(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLKV, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, unavailable(dialect.String(), err)
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return nil, unavailable(dialect.String(), err)
	}
	return &SQLKV{db: db, dialect: dialect}, nil
}

func (k *SQLKV) Name() string { return k.dialect.String() }

// q：把 $n 占位符改写为当前方言
func (k *SQLKV) q(s string) string {
	if k.dialect != SQLite {
		return s
	}
	return strings.NewReplacer("$1", "?", "$2", "?").Replace(s)
}

func (k *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	row := k.db.QueryRowContext(ctx, k.q("SELECT state_value FROM "+migrate.StateTable+" WHERE state_key=$1"), key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, unavailable(k.Name(), err)
	}
	return v, true, nil
}

func (k *SQLKV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, k.q(`INSERT INTO `+migrate.StateTable+`(state_key, state_value, updated_at)
        VALUES($1, $2, CURRENT_TIMESTAMP)
        ON CONFLICT (state_key) DO UPDATE SET state_value=excluded.state_value, updated_at=CURRENT_TIMESTAMP`), key, value)
	if err != nil {
		return unavailable(k.Name(), err)
	}
	return nil
}

func (k *SQLKV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, k.q("DELETE FROM "+migrate.StateTable+" WHERE state_key=$1"), key); err != nil {
		return unavailable(k.Name(), err)
	}
	return nil
}
