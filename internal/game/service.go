// 包 game：把棋盘、玩家会话与持久化组合成一次完整的游戏服务，供 HTTP 适配层与命令行工具调用
package game

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sort"
	"sync"

	"geocoin/internal/cache"
	"geocoin/internal/grid"
	"geocoin/internal/logger"
	"geocoin/internal/session"
	"geocoin/internal/store"
	"geocoin/internal/world"
)

// ErrNoLocator：未配置 IP 定位源
var ErrNoLocator = errors.New("game: no position source configured")

// Locator：一次性定位源
type Locator interface {
	Locate(ip net.IP) (grid.GeoPoint, error)
}

// Service：游戏服务
// 约束：所有世界操作在同一把锁内串行执行，每次更新都是一个原子工作单元；每次变更后写回快照并持久化
type Service struct {
	mu      sync.Mutex
	board   *world.Board
	sess    *session.Session
	store   *store.Manager
	start   grid.GeoPoint
	locator Locator
	log     *slog.Logger
	events  map[world.EventKind]int
}

// New：locator 可为 nil
func New(board *world.Board, mgr *store.Manager, start grid.GeoPoint, locator Locator) *Service {
	s := &Service{
		board:   board,
		sess:    session.New(start),
		store:   mgr,
		start:   start,
		locator: locator,
		log:     logger.L(),
		events:  make(map[world.EventKind]int),
	}
	board.Subscribe(s.onEvent)
	return s
}

func (s *Service) onEvent(e world.Event) {
	s.events[e.Kind]++
	s.log.Debug("world_event", "kind", e.Kind.String(), "cell", e.Cell.String(), "holdings", e.Holdings)
}

// Start：加载持久化状态后重绘；没有记录时按生成器冷启动
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrStorageUnavailable):
		s.degrade(err)
	case errors.Is(err, store.ErrMalformedState):
		s.log.Warn("store_state_malformed_fresh_start", "err", err)
	case err != nil:
		return err
	}
	if st != nil {
		s.apply(st)
		s.log.Info("game_state_loaded", "backend", s.store.Backend(), "momentos", len(st.CacheMomentos),
			"holdings", s.sess.Inventory.Count(), "segments", s.sess.Path.Len())
	} else {
		s.log.Info("game_cold_start", "backend", s.store.Backend(), "lat", s.start.Lat, "long", s.start.Long)
	}
	s.board.Materialize(s.sess)
	return s.persistLocked(ctx)
}

func (s *Service) apply(st *store.State) {
	sess := session.New(st.PlayerLocation)
	if err := sess.Inventory.Restore(st.PlayerCoins); err != nil {
		s.log.Warn("player_coins_malformed", "err", err)
	}
	if len(st.LinePoints) > 0 {
		sess.Path.SetSegments(st.LinePoints)
	}
	momentos := make(map[grid.CellIndex]cache.Momento, len(st.CacheMomentos))
	for _, cm := range st.CacheMomentos {
		momentos[cm.Cell] = cm.Momento
	}
	s.board.Load(momentos)
	s.sess = sess
}

// degrade：后端不可访问，改为纯内存模式继续运行
func (s *Service) degrade(err error) {
	s.log.Warn("store_unavailable_memory_only", "backend", s.store.Backend(), "err", err)
	s.store = s.store.MemoryOnly()
}

// Persist：写回快照并保存整条会话记录
func (s *Service) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Service) persistLocked(ctx context.Context) error {
	s.board.SaveSnapshots()
	st := s.stateLocked()
	err := s.store.Save(ctx, st)
	if errors.Is(err, store.ErrStorageUnavailable) {
		s.degrade(err)
		return s.store.Save(ctx, st)
	}
	return err
}

func (s *Service) stateLocked() *store.State {
	momentos := s.board.Momentos()
	pairs := make([]store.CellMomento, 0, len(momentos))
	for idx, m := range momentos {
		pairs = append(pairs, store.CellMomento{Cell: idx, Momento: m})
	}
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].Cell.I != pairs[y].Cell.I {
			return pairs[x].Cell.I < pairs[y].Cell.I
		}
		return pairs[x].Cell.J < pairs[y].Cell.J
	})
	return &store.State{
		PlayerLocation: s.sess.Location,
		PlayerCoins:    s.sess.Inventory.Momento(),
		CacheMomentos:  pairs,
		LinePoints:     s.sess.Path.Segments(),
	}
}

// MoveTo：连续移动到 p
func (s *Service) MoveTo(ctx context.Context, p grid.GeoPoint) (StateView, error) {
	return s.mutate(ctx, func() { s.board.MovePlayer(s.sess, p) })
}

// Teleport：跳跃到 p，开启新的轨迹段
func (s *Service) Teleport(ctx context.Context, p grid.GeoPoint) (StateView, error) {
	return s.mutate(ctx, func() { s.board.Teleport(s.sess, p) })
}

// Step：向一个方向移动一格
func (s *Service) Step(ctx context.Context, d grid.Direction) (StateView, error) {
	return s.mutate(ctx, func() { s.board.Step(s.sess, d) })
}

// Locate：按客户端 IP 定位并跳跃过去
func (s *Service) Locate(ctx context.Context, ip net.IP) (StateView, error) {
	if s.locator == nil {
		return StateView{}, ErrNoLocator
	}
	p, err := s.locator.Locate(ip)
	if err != nil {
		return StateView{}, err
	}
	return s.Teleport(ctx, p)
}

func (s *Service) mutate(ctx context.Context, fn func()) (StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	err := s.persistLocked(ctx)
	return s.viewLocked(), err
}

// Collect：从单元缓存取一枚代币
func (s *Service) Collect(ctx context.Context, idx grid.CellIndex) (cache.Token, error) {
	return s.transfer(ctx, func() (cache.Token, error) { return s.board.Collect(s.sess, idx) })
}

// Deposit：向单元缓存放入一枚代币
func (s *Service) Deposit(ctx context.Context, idx grid.CellIndex) (cache.Token, error) {
	return s.transfer(ctx, func() (cache.Token, error) { return s.board.Deposit(s.sess, idx) })
}

func (s *Service) transfer(ctx context.Context, fn func() (cache.Token, error)) (cache.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := fn()
	if err != nil {
		return cache.Token{}, err
	}
	return t, s.persistLocked(ctx)
}

// Reset：清除持久化记录，回到起点重新开始
func (s *Service) Reset(ctx context.Context) (StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		if !errors.Is(err, store.ErrStorageUnavailable) {
			return s.viewLocked(), err
		}
		s.degrade(err)
	}
	s.board.Reset()
	s.sess = session.New(s.start)
	s.board.Materialize(s.sess)
	s.log.Info("game_reset", "backend", s.store.Backend())
	err := s.persistLocked(ctx)
	return s.viewLocked(), err
}

// Snapshot：当前状态视图
func (s *Service) Snapshot() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Cells：可见窗口视图
func (s *Service) Cells() []CellView {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.board.Mapper()
	cells := s.board.VisibleCells(s.sess.Location)
	out := make([]CellView, 0, len(cells))
	for _, cell := range cells {
		idx := cell.Index()
		v := CellView{Cell: idx, Bounds: m.BoundsFor(idx), Geohash: grid.Geohash(m.PointFor(idx), geohashPrecision)}
		if c, ok := s.board.CacheAt(idx); ok {
			cv := cacheView(c)
			v.Cache = &cv
		}
		out = append(out, v)
	}
	return out
}

// EventCount：自启动以来某类世界事件的次数
func (s *Service) EventCount(k world.EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[k]
}
