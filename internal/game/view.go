package game

import (
	"geocoin/internal/cache"
	"geocoin/internal/grid"
)

const geohashPrecision = 9

type TokenView struct {
	Serial string         `json:"serial"`
	Origin grid.CellIndex `json:"origin"`
}

type CacheView struct {
	Cell   grid.CellIndex `json:"cell"`
	Count  int            `json:"count"`
	Tokens []TokenView    `json:"tokens"`
}

type CellView struct {
	Cell    grid.CellIndex `json:"cell"`
	Bounds  grid.Bounds    `json:"bounds"`
	Geohash string         `json:"geohash"`
	Cache   *CacheView     `json:"cache,omitempty"`
}

// StateView：玩家视角的状态
type StateView struct {
	Location      grid.GeoPoint     `json:"location"`
	Cell          grid.CellIndex    `json:"cell"`
	Holdings      CacheView         `json:"holdings"`
	Path          [][]grid.GeoPoint `json:"path"`
	ActiveCaches  int               `json:"active_caches"`
	DormantCaches int               `json:"dormant_caches"`
	Backend       string            `json:"backend"`
}

func cacheView(c *cache.Cache) CacheView {
	tokens := c.Tokens()
	v := CacheView{Cell: c.Cell, Count: len(tokens), Tokens: make([]TokenView, len(tokens))}
	for k, t := range tokens {
		v.Tokens[k] = TokenView{Serial: t.Serial, Origin: t.Origin}
	}
	return v
}

func (s *Service) viewLocked() StateView {
	active := s.board.ActiveCaches()
	dormant := 0
	for idx := range s.board.Momentos() {
		if _, ok := s.board.CacheAt(idx); !ok {
			dormant++
		}
	}
	return StateView{
		Location:      s.sess.Location,
		Cell:          s.board.Mapper().CellFor(s.sess.Location),
		Holdings:      cacheView(s.sess.Inventory),
		Path:          s.sess.Path.Segments(),
		ActiveCaches:  len(active),
		DormantCaches: dormant,
		Backend:       s.store.Backend(),
	}
}
