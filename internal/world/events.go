package world

import (
	"sync"

	"geocoin/internal/grid"
)

// EventKind：观察者事件类型
type EventKind int

const (
	// EventHoldingsChanged：玩家背包或某个缓存的代币发生变化
	EventHoldingsChanged EventKind = iota
	// EventRedrawn：可见窗口重新物化
	EventRedrawn
	// EventPlayerMoved：玩家位置变化
	EventPlayerMoved
)

func (k EventKind) String() string {
	switch k {
	case EventHoldingsChanged:
		return "holdings_changed"
	case EventRedrawn:
		return "redrawn"
	case EventPlayerMoved:
		return "player_moved"
	}
	return "unknown"
}

// Event：通知展示层刷新；Cell 仅对 HoldingsChanged 有意义
type Event struct {
	Kind     EventKind
	Cell     grid.CellIndex
	Location grid.GeoPoint
	Holdings int
}

// hub：回调注册表；回调在锁外按注册顺序同步调用
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
	ids  []int
}

func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(Event))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	h.ids = append(h.ids, id)
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
		for k, v := range h.ids {
			if v == id {
				h.ids = append(h.ids[:k], h.ids[k+1:]...)
				break
			}
		}
	}
}

func (h *hub) emit(e Event) {
	h.mu.Lock()
	fns := make([]func(Event), 0, len(h.ids))
	for _, id := range h.ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
