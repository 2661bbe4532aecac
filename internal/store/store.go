// 包 store：会话状态的持久化管理，单条 JSON 记录保存在可替换的键值后端中
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geocoin/internal/cache"
	"geocoin/internal/grid"
	"geocoin/internal/logger"
	"geocoin/internal/metrics"
)

var (
	// ErrStorageUnavailable：后端不可访问；调用方应退回纯内存模式
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMalformedState：记录存在但无法解析
	ErrMalformedState = errors.New("malformed persisted state")
)

// DefaultKey：会话记录键名
const DefaultKey = "mapState"

// State：一次会话的完整可持久化状态
type State struct {
	PlayerLocation grid.GeoPoint     `json:"playerLocation"`
	PlayerCoins    cache.Momento     `json:"playerCoins"`
	CacheMomentos  []CellMomento     `json:"cacheMomentos"`
	LinePoints     [][]grid.GeoPoint `json:"linePoints"`
}

// CellMomento：(单元, 快照) 对，线上格式为二元数组 [{"i":..,"j":..}, "..."]
type CellMomento struct {
	Cell    grid.CellIndex
	Momento cache.Momento
}

func (p CellMomento) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Cell, string(p.Momento)})
}

func (p *CellMomento) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("cache momento pair has %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Cell); err != nil {
		return err
	}
	var m string
	if err := json.Unmarshal(pair[1], &m); err != nil {
		return err
	}
	p.Momento = cache.Momento(m)
	return nil
}

// Manager：读写会话记录
type Manager struct {
	kv  KV
	key string
}

func NewManager(kv KV, key string) *Manager {
	if key == "" {
		key = DefaultKey
	}
	return &Manager{kv: kv, key: key}
}

// Backend：后端名称，用于日志与状态输出
func (m *Manager) Backend() string { return m.kv.Name() }

// Save：整条记录一次写入
func (m *Manager) Save(ctx context.Context, st *State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return m.observe("save", func() error { return m.kv.Set(ctx, m.key, string(b)) })
}

// Load：读取记录；不存在时返回 (nil, nil)，属于正常的冷启动
func (m *Manager) Load(ctx context.Context) (*State, error) {
	var raw string
	var ok bool
	err := m.observe("load", func() error {
		var e error
		raw, ok, e = m.kv.Get(ctx, m.key)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.L().Debug("store_load_empty", "backend", m.kv.Name(), "key", m.key)
		return nil, nil
	}
	var st *State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		metrics.StoreOpsTotal.WithLabelValues("load", "malformed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if st == nil {
		// 字面量 null 等同于无记录
		logger.L().Debug("store_load_null", "backend", m.kv.Name(), "key", m.key)
		return nil, nil
	}
	return st, nil
}

// Clear：删除记录；记录不存在不视为错误
func (m *Manager) Clear(ctx context.Context) error {
	return m.observe("clear", func() error { return m.kv.Delete(ctx, m.key) })
}

func (m *Manager) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StoreDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.StoreOpsTotal.WithLabelValues(op, "error").Inc()
		logger.L().Warn("store_"+op+"_fail", "backend", m.kv.Name(), "err", err)
		return err
	}
	metrics.StoreOpsTotal.WithLabelValues(op, "ok").Inc()
	logger.L().Debug("store_"+op+"_ok", "backend", m.kv.Name(), "key", m.key)
	return nil
}

// MemoryOnly：键名不变、后端换成进程内存的管理器
func (m *Manager) MemoryOnly() *Manager { return &Manager{kv: NewMemoryKV(), key: m.key} }
