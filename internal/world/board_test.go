package world

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocoin/internal/cache"
	"geocoin/internal/grid"
	"geocoin/internal/session"
)

var origin = grid.GeoPoint{Lat: 0.00005, Long: 0.00005}

func smallOptions(seed string) Options {
	o := DefaultOptions()
	o.Radius = 1
	o.Seed = seed
	return o
}

// 找到一个在 (0,0) 生成且至少有一个代币的种子
func seedWithCacheAtOrigin(t *testing.T) Options {
	t.Helper()
	for k := 0; k < 10000; k++ {
		o := smallOptions(fmt.Sprintf("seed-%d", k))
		b := NewBoard(o)
		if b.Generator().ShouldSpawn(grid.CellIndex{}) && b.Generator().InitialTokenCount(grid.CellIndex{}) > 0 {
			return o
		}
	}
	t.Fatal("no seed spawns a non-empty cache at origin")
	return Options{}
}

func serials(cs ...*cache.Cache) []string {
	var out []string
	for _, c := range cs {
		for _, tk := range c.Tokens() {
			out = append(out, tk.Serial)
		}
	}
	sort.Strings(out)
	return out
}

func TestBoard_VisibleCellsAreCanonical(t *testing.T) {
	b := NewBoard(smallOptions("v"))
	cells := b.VisibleCells(origin)
	require.Len(t, cells, 9)
	assert.Equal(t, grid.CellIndex{I: -1, J: -1}, cells[0].Index())
	assert.Equal(t, grid.CellIndex{I: 1, J: 1}, cells[8].Index())

	again := b.VisibleCells(origin)
	for k := range cells {
		assert.Same(t, cells[k], again[k])
	}

	o := DefaultOptions()
	o.Radius = 3
	assert.Len(t, NewBoard(o).VisibleCells(origin), 49)
}

func TestBoard_ColdStartMatchesGenerator(t *testing.T) {
	b := NewBoard(smallOptions("cold"))
	s := session.New(origin)
	active := b.Materialize(s)

	want := 0
	for _, cell := range b.VisibleCells(origin) {
		if b.Generator().ShouldSpawn(cell.Index()) {
			want++
		}
	}
	assert.Len(t, active, want)
	for _, c := range active {
		assert.True(t, b.Generator().ShouldSpawn(c.Cell))
		assert.Equal(t, b.Generator().InitialTokenCount(c.Cell), c.Count())
	}
}

func TestBoard_DormancyPreservesMutation(t *testing.T) {
	b := NewBoard(seedWithCacheAtOrigin(t))
	s := session.New(origin)
	b.Materialize(s)

	c, ok := b.CacheAt(grid.CellIndex{})
	require.True(t, ok)
	n := c.Count()

	_, err := b.Collect(s, grid.CellIndex{})
	require.NoError(t, err)
	assert.Equal(t, n-1, c.Count())

	b.MovePlayer(s, grid.GeoPoint{Lat: 1, Long: 1})
	_, ok = b.CacheAt(grid.CellIndex{})
	assert.False(t, ok)

	b.MovePlayer(s, origin)
	back, ok := b.CacheAt(grid.CellIndex{})
	require.True(t, ok)
	assert.Equal(t, n-1, back.Count())
	assert.Equal(t, 1, s.Inventory.Count())
}

func TestBoard_EmptiedCacheNeverRegenerates(t *testing.T) {
	b := NewBoard(seedWithCacheAtOrigin(t))
	s := session.New(origin)
	b.Materialize(s)

	for {
		if _, err := b.Collect(s, grid.CellIndex{}); err != nil {
			assert.ErrorIs(t, err, cache.ErrEmptyCache)
			break
		}
	}
	b.Teleport(s, grid.GeoPoint{Lat: -3, Long: 2})
	b.Teleport(s, origin)

	c, ok := b.CacheAt(grid.CellIndex{})
	require.True(t, ok)
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 3, s.Path.Len())
}

func TestBoard_TokenConservation(t *testing.T) {
	b := NewBoard(seedWithCacheAtOrigin(t))
	s := session.New(origin)
	b.Materialize(s)
	c, _ := b.CacheAt(grid.CellIndex{})
	before := serials(c, s.Inventory)

	ops := []bool{true, true, false, true, false, false, false, true}
	for _, collect := range ops {
		if collect {
			_, _ = b.Collect(s, grid.CellIndex{})
		} else {
			_, _ = b.Deposit(s, grid.CellIndex{})
		}
	}
	assert.Equal(t, before, serials(c, s.Inventory))
}

func TestBoard_CollectErrors(t *testing.T) {
	b := NewBoard(seedWithCacheAtOrigin(t))
	s := session.New(origin)
	b.Materialize(s)

	_, err := b.Collect(s, grid.CellIndex{I: 500, J: 500})
	assert.ErrorIs(t, err, ErrNoCache)

	_, err = b.Deposit(s, grid.CellIndex{})
	assert.ErrorIs(t, err, cache.ErrEmptyCache)
}

func TestBoard_MalformedMomentoRestoresEmpty(t *testing.T) {
	b := NewBoard(smallOptions("bad"))
	b.Load(map[grid.CellIndex]cache.Momento{{I: 0, J: 0}: "not json"})
	s := session.New(origin)
	b.Materialize(s)

	c, ok := b.CacheAt(grid.CellIndex{})
	require.True(t, ok)
	assert.Equal(t, 0, c.Count())
}

func TestBoard_MomentoTakesPrecedenceOverGenerator(t *testing.T) {
	o := smallOptions("precedence")
	o.SpawnProbability = 0
	b := NewBoard(o)

	stash := cache.New(grid.CellIndex{I: 1, J: 0})
	stash.Deposit(cache.Token{Serial: "9:9#0", Origin: grid.CellIndex{I: 9, J: 9}})
	b.Load(map[grid.CellIndex]cache.Momento{{I: 1, J: 0}: stash.Momento()})

	active := b.Materialize(session.New(origin))
	require.Len(t, active, 1)
	assert.Equal(t, stash.Tokens(), active[0].Tokens())
}

func TestBoard_ClampRestoredDropsForgedTokens(t *testing.T) {
	o := seedWithCacheAtOrigin(t)
	o.ClampRestored = true
	b := NewBoard(o)

	genuine := b.Generator().Populate(grid.CellIndex{})
	forged := cache.New(grid.CellIndex{})
	for _, tk := range genuine.Tokens() {
		forged.Deposit(tk)
		forged.Deposit(tk)
	}
	forged.Deposit(cache.Token{Serial: "0:0#999", Origin: grid.CellIndex{}})
	b.Load(map[grid.CellIndex]cache.Momento{{}: forged.Momento()})
	b.Materialize(session.New(origin))

	c, ok := b.CacheAt(grid.CellIndex{})
	require.True(t, ok)
	assert.Equal(t, genuine.Tokens(), c.Tokens())
}

func TestBoard_MomentosRoundTripThroughLoad(t *testing.T) {
	o := seedWithCacheAtOrigin(t)
	b := NewBoard(o)
	s := session.New(origin)
	b.Materialize(s)
	_, err := b.Collect(s, grid.CellIndex{})
	require.NoError(t, err)
	b.SaveSnapshots()
	saved := b.Momentos()

	fresh := NewBoard(o)
	fresh.Load(saved)
	fresh.Materialize(session.New(origin))
	assert.Equal(t, saved, fresh.Momentos())

	want, _ := b.CacheAt(grid.CellIndex{})
	got, _ := fresh.CacheAt(grid.CellIndex{})
	assert.Equal(t, want.Tokens(), got.Tokens())
}

func TestBoard_BoundedRegistryKeepsDormantIdentity(t *testing.T) {
	o := seedWithCacheAtOrigin(t)
	o.RegistryCap = 1
	b := NewBoard(o)
	assert.Equal(t, 18, b.Options().RegistryCap)

	s := session.New(origin)
	b.Materialize(s)
	_, err := b.Collect(s, grid.CellIndex{})
	require.NoError(t, err)
	n, _ := b.CacheAt(grid.CellIndex{})
	left := n.Count()

	for k := 1; k <= 20; k++ {
		b.Teleport(s, grid.GeoPoint{Lat: float64(k), Long: float64(-k)})
	}
	assert.LessOrEqual(t, b.Registry().Len(), 18+9+len(b.Momentos()))

	b.Teleport(s, origin)
	c, ok := b.CacheAt(grid.CellIndex{})
	require.True(t, ok)
	assert.Equal(t, left, c.Count())
}

func TestBoard_SubscribeAndCancel(t *testing.T) {
	b := NewBoard(seedWithCacheAtOrigin(t))
	s := session.New(origin)

	var got []EventKind
	cancel := b.Subscribe(func(e Event) { got = append(got, e.Kind) })
	b.MovePlayer(s, origin)
	_, err := b.Collect(s, grid.CellIndex{})
	require.NoError(t, err)
	assert.Equal(t, []EventKind{EventPlayerMoved, EventRedrawn, EventHoldingsChanged}, got)

	cancel()
	b.Step(s, grid.North)
	assert.Len(t, got, 3)
}

func TestBoard_StepMovesOneTile(t *testing.T) {
	b := NewBoard(smallOptions("step"))
	s := session.New(origin)
	b.Step(s, grid.East)
	assert.Equal(t, grid.CellIndex{I: 0, J: 1}, b.Mapper().CellFor(s.Location))
	assert.Equal(t, 1, s.Path.Len())
	assert.Len(t, s.Path.Segments()[0], 2)
}
