package grid

import (
	"container/list"
	"sync"
)

// Cell：单元的规范身份对象；同一 (I, J) 在被引用期间始终对应同一个 *Cell，可直接作为 map 键
type Cell struct {
	I, J int
	pins int // 由 Registry.mu 保护
}

func (c *Cell) Index() CellIndex { return CellIndex{I: c.I, J: c.J} }

func (c *Cell) String() string { return c.Index().String() }

// Registry：规范单元驻留表
// 约束：cap<=0 时永不淘汰；cap>0 时限制的是未被钉住（pins==0）的单元数，按 LRU 淘汰，
// 被钉住的单元永不淘汰；查询-插入在同一把锁内完成，可被并发调用
type Registry struct {
	mu     sync.Mutex
	cap    int
	pinned int
	lst    *list.List
	dict   map[CellIndex]*list.Element // 按完整 (I, J) 索引，任意 int 都不会互相别名
}

func NewRegistry(capacity int) *Registry {
	return &Registry{cap: capacity, lst: list.New(), dict: make(map[CellIndex]*list.Element)}
}

// Canonicalize：返回 (i, j) 的规范 *Cell，首次访问时惰性创建
func (r *Registry) Canonicalize(i, j int) *Cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := CellIndex{I: i, J: j}
	if e, ok := r.dict[k]; ok {
		r.lst.MoveToFront(e)
		return e.Value.(*Cell)
	}
	c := &Cell{I: i, J: j}
	r.dict[k] = r.lst.PushFront(c)
	r.evictLocked()
	return c
}

// Lookup：与 Canonicalize 相同，参数为 CellIndex
func (r *Registry) Lookup(idx CellIndex) *Cell { return r.Canonicalize(idx.I, idx.J) }

// Retain：钉住单元，使其不会被淘汰
func (r *Registry) Retain(c *Cell) {
	r.mu.Lock()
	if c.pins == 0 {
		r.pinned++
	}
	c.pins++
	r.mu.Unlock()
}

// Release：解除一次钉住；计数不会小于 0
func (r *Registry) Release(c *Cell) {
	r.mu.Lock()
	if c.pins > 0 {
		c.pins--
		if c.pins == 0 {
			r.pinned--
		}
	}
	r.evictLocked()
	r.mu.Unlock()
}

// Len：当前驻留的单元数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lst.Len()
}

func (r *Registry) evictLocked() {
	if r.cap <= 0 {
		return
	}
	front := r.lst.Front()
	for e := r.lst.Back(); e != nil && e != front && r.lst.Len()-r.pinned > r.cap; {
		prev := e.Prev()
		c := e.Value.(*Cell)
		if c.pins == 0 {
			r.lst.Remove(e)
			delete(r.dict, c.Index())
		}
		e = prev
	}
}
