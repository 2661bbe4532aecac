package store

import (
	"context"
	"errors"
	"fmt"

	"geocoin/internal/logger"
	"geocoin/internal/utils"
)

// Options：后端选择
// 约束：Backend 取 redis/postgres/sqlite/file/memory；redis 与 postgres 的连接参数沿用 REDIS_* 与 PG_* 环境变量
type Options struct {
	Backend    string
	Key        string
	File       string
	SQLitePath string
}

// RedisPrefix：Redis 键前缀
const RedisPrefix = "geocoin:"

// Open：打开后端并做连通性检查，返回管理器与关闭函数
func Open(ctx context.Context, opts Options) (*Manager, func() error, error) {
	nop := func() error { return nil }
	switch opts.Backend {
	case "memory":
		return NewManager(NewMemoryKV(), opts.Key), nop, nil
	case "", "file":
		kv, err := NewFileKV(opts.File)
		if err != nil {
			return nil, nop, err
		}
		return NewManager(kv, opts.Key), nop, nil
	case "redis":
		rdb, err := utils.OpenRedisFromEnv()
		if err != nil {
			return nil, nop, unavailable("redis", err)
		}
		kv := NewRedisKV(rdb, RedisPrefix)
		if err := kv.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nop, err
		}
		return NewManager(kv, opts.Key), rdb.Close, nil
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, nop, unavailable("postgres", err)
		}
		kv, err := NewSQLKV(ctx, db, Postgres)
		if err != nil {
			db.Close()
			return nil, nop, err
		}
		return NewManager(kv, opts.Key), db.Close, nil
	case "sqlite":
		db, err := utils.OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, nop, unavailable("sqlite", err)
		}
		kv, err := NewSQLKV(ctx, db, SQLite)
		if err != nil {
			db.Close()
			return nil, nop, err
		}
		return NewManager(kv, opts.Key), db.Close, nil
	}
	return nil, nop, fmt.Errorf("unknown store backend %q", opts.Backend)
}

// OpenOrMemory：与 Open 相同，但后端不可访问时退回纯内存模式并记录告警
func OpenOrMemory(ctx context.Context, opts Options) (*Manager, func() error, error) {
	m, closer, err := Open(ctx, opts)
	if errors.Is(err, ErrStorageUnavailable) {
		logger.L().Warn("store_unavailable_memory_only", "backend", opts.Backend, "err", err)
		return NewManager(NewMemoryKV(), opts.Key), closer, nil
	}
	return m, closer, err
}
