// 包 session：一次游戏会话的玩家上下文（位置、背包、轨迹），由调用方显式持有并传给世界操作
package session

import (
	"geocoin/internal/cache"
	"geocoin/internal/grid"
)

// Session：玩家状态
// 约束：背包是普通 Cache，单元固定为 (0,0)，仅作为容器使用
type Session struct {
	Location  grid.GeoPoint
	Inventory *cache.Cache
	Path      *TravelPath
}

// New：在起点创建会话，轨迹以起点开启第一段
func New(start grid.GeoPoint) *Session {
	s := &Session{
		Location:  start,
		Inventory: cache.New(grid.CellIndex{}),
		Path:      &TravelPath{},
	}
	s.Path.Break(start)
	return s
}

// MoveTo：连续移动，延长当前轨迹段
func (s *Session) MoveTo(p grid.GeoPoint) {
	s.Location = p
	s.Path.Extend(p)
}

// Teleport：跳跃（例如定位校正），从 p 开始新的轨迹段，避免跨越跳跃画出虚假连线
func (s *Session) Teleport(p grid.GeoPoint) {
	s.Location = p
	s.Path.Break(p)
}

// TravelPath：由多段互不相连的折线组成的轨迹
type TravelPath struct {
	segments [][]grid.GeoPoint
}

// Extend：向当前段追加点；尚无任何段时开启第一段
func (t *TravelPath) Extend(p grid.GeoPoint) {
	if len(t.segments) == 0 {
		t.segments = append(t.segments, nil)
	}
	last := len(t.segments) - 1
	t.segments[last] = append(t.segments[last], p)
}

// Break：开启以 p 为首点的新段；当前段为空时复用它
func (t *TravelPath) Break(p grid.GeoPoint) {
	if n := len(t.segments); n > 0 && len(t.segments[n-1]) == 0 {
		t.segments[n-1] = append(t.segments[n-1], p)
		return
	}
	t.segments = append(t.segments, []grid.GeoPoint{p})
}

// Segments：返回深拷贝
func (t *TravelPath) Segments() [][]grid.GeoPoint {
	out := make([][]grid.GeoPoint, len(t.segments))
	for k, seg := range t.segments {
		out[k] = append([]grid.GeoPoint(nil), seg...)
	}
	return out
}

// SetSegments：整体替换轨迹（从持久化恢复），丢弃空段
func (t *TravelPath) SetSegments(segs [][]grid.GeoPoint) {
	t.segments = t.segments[:0]
	for _, seg := range segs {
		if len(seg) == 0 {
			continue
		}
		t.segments = append(t.segments, append([]grid.GeoPoint(nil), seg...))
	}
}

// Len：段数
func (t *TravelPath) Len() int { return len(t.segments) }
