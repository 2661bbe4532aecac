// 包 world：棋盘（可见窗口、活跃缓存与快照表），负责缓存的物化、休眠与恢复
package world

import (
	"errors"
	"log/slog"
	"sort"

	"geocoin/internal/cache"
	"geocoin/internal/grid"
	"geocoin/internal/logger"
	"geocoin/internal/luck"
	"geocoin/internal/metrics"
	"geocoin/internal/session"
)

// ErrNoCache：当前可见窗口内该单元没有活跃缓存
var ErrNoCache = errors.New("world: no active cache at cell")

const (
	DefaultTileWidth = 1e-4
	DefaultRadius    = 8
	DefaultSeed      = "In the beginning, the universe was created. This has made a lot of people very angry and been widely regarded as a bad move."
)

// Options：棋盘参数
// 约束：TileWidth>0；RegistryCap<=0 表示不限；ClampRestored 为真时恢复快照会丢弃生成器无法产生的代币
type Options struct {
	TileWidth        float64
	Radius           int
	Seed             string
	SpawnProbability float64
	MaxInitialTokens int
	RegistryCap      int
	ClampRestored    bool
}

func DefaultOptions() Options {
	return Options{
		TileWidth:        DefaultTileWidth,
		Radius:           DefaultRadius,
		Seed:             DefaultSeed,
		SpawnProbability: luck.DefaultSpawnProbability,
		MaxInitialTokens: luck.DefaultMaxInitialTokens,
	}
}

// Board：世界状态
// 约束：非并发安全，调用方需串行化；active 与 momentos 以规范 *grid.Cell 为键，
// 两张表中出现的单元均在注册表中被钉住
type Board struct {
	opts     Options
	mapper   grid.Mapper
	gen      luck.Generator
	registry *grid.Registry
	active   map[*grid.Cell]*cache.Cache
	momentos map[*grid.Cell]cache.Momento
	events   hub
	log      *slog.Logger
}

// NewBoard：创建棋盘
// 背景：有界注册表的容量至少为两个可见窗口，保证一次物化过程中窗口内单元不会被淘汰
func NewBoard(opts Options) *Board {
	l := logger.L()
	if side := 2*opts.Radius + 1; opts.RegistryCap > 0 && opts.RegistryCap < 2*side*side {
		l.Warn("registry_cap_raised", "requested", opts.RegistryCap, "cap", 2*side*side)
		opts.RegistryCap = 2 * side * side
	}
	return &Board{
		opts:     opts,
		mapper:   grid.Mapper{TileWidth: opts.TileWidth},
		gen:      luck.NewGenerator(opts.Seed, opts.SpawnProbability, opts.MaxInitialTokens),
		registry: grid.NewRegistry(opts.RegistryCap),
		active:   make(map[*grid.Cell]*cache.Cache),
		momentos: make(map[*grid.Cell]cache.Momento),
		log:      l,
	}
}

func (b *Board) Options() Options { return b.opts }
func (b *Board) Mapper() grid.Mapper { return b.mapper }
func (b *Board) Generator() luck.Generator { return b.gen }
func (b *Board) Registry() *grid.Registry { return b.registry }
func (b *Board) Subscribe(fn func(Event)) func() { return b.events.subscribe(fn) }

// VisibleCells：以 center 所在单元为中心、半径 Radius 的规范单元，共 (2r+1)^2 个，按 i、j 升序
func (b *Board) VisibleCells(center grid.GeoPoint) []*grid.Cell {
	c := b.mapper.CellFor(center)
	r := b.opts.Radius
	out := make([]*grid.Cell, 0, (2*r+1)*(2*r+1))
	for di := -r; di <= r; di++ {
		for dj := -r; dj <= r; dj++ {
			out = append(out, b.registry.Canonicalize(c.I+di, c.J+dj))
		}
	}
	return out
}

// Materialize：按玩家位置重建活跃集合
// 约束：先把现有活跃缓存写回快照；有快照的单元只从快照恢复，绝不重新生成；
// 没有快照的单元才询问生成器
func (b *Board) Materialize(s *session.Session) []*cache.Cache {
	b.SaveSnapshots()
	next := make(map[*grid.Cell]*cache.Cache)
	spawned, restored := 0, 0
	for _, cell := range b.VisibleCells(s.Location) {
		if m, ok := b.momentos[cell]; ok {
			next[cell] = b.restore(cell, m)
			restored++
			continue
		}
		if idx := cell.Index(); b.gen.ShouldSpawn(idx) {
			next[cell] = b.gen.Populate(idx)
			spawned++
		}
	}
	for cell := range next {
		b.registry.Retain(cell)
	}
	for cell := range b.active {
		b.registry.Release(cell)
	}
	b.active = next

	metrics.MaterializeTotal.Inc()
	metrics.CachesSpawnedTotal.Add(float64(spawned))
	metrics.CachesRestoredTotal.Add(float64(restored))
	metrics.ActiveCaches.Set(float64(len(next)))
	metrics.RegistryCells.Set(float64(b.registry.Len()))
	b.log.Debug("world_materialize", "center", b.mapper.CellFor(s.Location).String(),
		"active", len(next), "spawned", spawned, "restored", restored, "dormant", len(b.momentos))

	b.events.emit(Event{Kind: EventRedrawn, Location: s.Location, Holdings: s.Inventory.Count()})
	return b.ActiveCaches()
}

func (b *Board) restore(cell *grid.Cell, m cache.Momento) *cache.Cache {
	c, err := cache.FromMomento(cell.Index(), m)
	if err != nil {
		metrics.MomentoMalformedTotal.Inc()
		b.log.Warn("momento_malformed", "cell", cell.String(), "err", err)
		return c
	}
	if b.opts.ClampRestored {
		return b.clamp(c)
	}
	return c
}

// clamp：只保留生成器能够产生的代币，同一序号只保留一次
func (b *Board) clamp(c *cache.Cache) *cache.Cache {
	out := cache.New(c.Cell)
	seen := make(map[string]struct{})
	dropped := 0
	for _, t := range c.Tokens() {
		if _, dup := seen[t.Serial]; dup || !b.gen.Genuine(t) {
			dropped++
			continue
		}
		seen[t.Serial] = struct{}{}
		out.Deposit(t)
	}
	if dropped > 0 {
		b.log.Warn("momento_tokens_dropped", "cell", c.Cell.String(), "dropped", dropped, "kept", out.Count())
	}
	return out
}

// SaveSnapshots：把每个活跃缓存写入快照表；幂等，可随时调用
func (b *Board) SaveSnapshots() {
	for cell, c := range b.active {
		b.putMomento(cell, c.Momento())
	}
}

func (b *Board) putMomento(cell *grid.Cell, m cache.Momento) {
	if _, ok := b.momentos[cell]; !ok {
		b.registry.Retain(cell)
	}
	b.momentos[cell] = m
}

// ActiveCaches：当前活跃缓存，按 i、j 升序
func (b *Board) ActiveCaches() []*cache.Cache {
	out := make([]*cache.Cache, 0, len(b.active))
	for _, c := range b.active {
		out = append(out, c)
	}
	sort.Slice(out, func(x, y int) bool {
		if out[x].Cell.I != out[y].Cell.I {
			return out[x].Cell.I < out[y].Cell.I
		}
		return out[x].Cell.J < out[y].Cell.J
	})
	return out
}

// CacheAt：返回单元上的活跃缓存
func (b *Board) CacheAt(idx grid.CellIndex) (*cache.Cache, bool) {
	c, ok := b.active[b.registry.Lookup(idx)]
	return c, ok
}

// Momentos：快照表的值拷贝（不含尚未写回的活跃修改，持久化前先调用 SaveSnapshots）
func (b *Board) Momentos() map[grid.CellIndex]cache.Momento {
	out := make(map[grid.CellIndex]cache.Momento, len(b.momentos))
	for cell, m := range b.momentos {
		out[cell.Index()] = m
	}
	return out
}

// Load：用持久化的快照替换全部世界状态并清空活跃集合；随后需调用 Materialize
func (b *Board) Load(momentos map[grid.CellIndex]cache.Momento) {
	b.Reset()
	for idx, m := range momentos {
		b.putMomento(b.registry.Lookup(idx), m)
	}
}

// Reset：丢弃全部活跃缓存与快照，世界回到未访问状态
func (b *Board) Reset() {
	for cell := range b.active {
		b.registry.Release(cell)
	}
	for cell := range b.momentos {
		b.registry.Release(cell)
	}
	b.active = make(map[*grid.Cell]*cache.Cache)
	b.momentos = make(map[*grid.Cell]cache.Momento)
	metrics.ActiveCaches.Set(0)
}

// MovePlayer：位置源入口 "玩家移动到 P"，延长当前轨迹并重绘
func (b *Board) MovePlayer(s *session.Session, p grid.GeoPoint) []*cache.Cache {
	s.MoveTo(p)
	b.events.emit(Event{Kind: EventPlayerMoved, Location: p, Holdings: s.Inventory.Count()})
	return b.Materialize(s)
}

// Teleport：不连续的跳跃（例如定位校正），开启新的轨迹段并重绘
func (b *Board) Teleport(s *session.Session, p grid.GeoPoint) []*cache.Cache {
	s.Teleport(p)
	b.events.emit(Event{Kind: EventPlayerMoved, Location: p, Holdings: s.Inventory.Count()})
	return b.Materialize(s)
}

// Step：向指定方向移动一个瓦片宽度
func (b *Board) Step(s *session.Session, d grid.Direction) []*cache.Cache {
	return b.MovePlayer(s, b.mapper.Step(s.Location, d))
}

// Collect：从单元缓存取出最近放入的代币放入玩家背包
func (b *Board) Collect(s *session.Session, idx grid.CellIndex) (cache.Token, error) {
	c, ok := b.CacheAt(idx)
	if !ok {
		return cache.Token{}, ErrNoCache
	}
	return b.transfer(s, c, s.Inventory, c.Cell, "collect")
}

// Deposit：从玩家背包取出最近获得的代币放入单元缓存
func (b *Board) Deposit(s *session.Session, idx grid.CellIndex) (cache.Token, error) {
	c, ok := b.CacheAt(idx)
	if !ok {
		return cache.Token{}, ErrNoCache
	}
	return b.transfer(s, s.Inventory, c, c.Cell, "deposit")
}

func (b *Board) transfer(s *session.Session, from, to *cache.Cache, cell grid.CellIndex, dir string) (cache.Token, error) {
	t, err := cache.Transfer(from, to)
	if err != nil {
		return cache.Token{}, err
	}
	metrics.TokenTransfersTotal.WithLabelValues(dir).Inc()
	b.log.Debug("token_transfer", "direction", dir, "cell", cell.String(), "serial", t.Serial)
	b.events.emit(Event{Kind: EventHoldingsChanged, Cell: cell, Location: s.Location, Holdings: s.Inventory.Count()})
	return t, nil
}
