package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"geocoin/internal/logger"
)

// KV：最小的字符串键值后端（对应浏览器 localStorage 的 getItem/setItem/removeItem）
// 约束：后端不可访问时返回包裹 ErrStorageUnavailable 的错误；键不存在时 Get 返回 ok=false
type KV interface {
	Name() string
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

func unavailable(backend string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, backend, err)
}

// MemoryKV：进程内后端，用于纯内存模式与测试
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryKV() *MemoryKV { return &MemoryKV{m: make(map[string]string)} }

func (k *MemoryKV) Name() string { return "memory" }

func (k *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *MemoryKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	k.m[key] = value
	k.mu.Unlock()
	return nil
}

func (k *MemoryKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	delete(k.m, key)
	k.mu.Unlock()
	return nil
}

// FileKV：单个 JSON 文件保存全部键，写入采用临时文件加重命名
type FileKV struct {
	mu   sync.Mutex
	path string
}

// NewFileKV：确保目录存在且可写
func NewFileKV(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, unavailable("file", err)
	}
	return &FileKV{path: path}, nil
}

func (k *FileKV) Name() string { return "file" }

func (k *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, err := k.read()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (k *FileKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, err := k.readForWrite()
	if err != nil {
		return err
	}
	m[key] = value
	return k.write(m)
}

func (k *FileKV) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, err := k.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return k.write(m)
}

// read：文件不存在视为空表；文件内容损坏时按 ErrMalformedState 返回
func (k *FileKV) read() (map[string]string, error) {
	b, err := os.ReadFile(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, unavailable("file", err)
	}
	m := make(map[string]string)
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedState, k.path, err)
	}
	return m, nil
}

// readForWrite：写路径上的读取；文件损坏时另存为 <path>.corrupt 并按空表覆盖
// 约束：只有 Get 报告 ErrMalformedState，否则损坏文件会同时卡死启动与重置
func (k *FileKV) readForWrite() (map[string]string, error) {
	m, err := k.read()
	if !errors.Is(err, ErrMalformedState) {
		return m, err
	}
	if b, rerr := os.ReadFile(k.path); rerr == nil {
		if werr := os.WriteFile(k.path+".corrupt", b, 0o644); werr != nil {
			logger.L().Warn("state_file_backup_failed", "path", k.path, "err", werr)
		}
	}
	logger.L().Warn("state_file_corrupt_overwritten", "path", k.path, "err", err)
	return make(map[string]string), nil
}

func (k *FileKV) write(m map[string]string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(k.path), ".state-*.json")
	if err != nil {
		return unavailable("file", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return unavailable("file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return unavailable("file", err)
	}
	if err := os.Rename(tmp.Name(), k.path); err != nil {
		os.Remove(tmp.Name())
		return unavailable("file", err)
	}
	return nil
}
