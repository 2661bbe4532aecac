package cache

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocoin/internal/grid"
)

func tok(i, j, n int) Token {
	return Token{Serial: fmt.Sprintf("%d:%d#%d", i, j, n), Origin: grid.CellIndex{I: i, J: j}}
}

func TestCache_WithdrawIsLIFO(t *testing.T) {
	c := New(grid.CellIndex{I: 1, J: 2})
	c.Deposit(tok(1, 2, 0))
	c.Deposit(tok(1, 2, 1))
	c.Deposit(tok(9, 9, 0))

	got, err := c.Withdraw()
	require.NoError(t, err)
	assert.Equal(t, tok(9, 9, 0), got)

	got, err = c.Withdraw()
	require.NoError(t, err)
	assert.Equal(t, tok(1, 2, 1), got)
	assert.Equal(t, 1, c.Count())
}

func TestCache_WithdrawEmpty(t *testing.T) {
	c := New(grid.CellIndex{})

	_, err := c.Withdraw()
	assert.True(t, errors.Is(err, ErrEmptyCache))
	assert.Equal(t, 0, c.Count())
}

func TestCache_DepositZeroTokenIsNoop(t *testing.T) {
	c := New(grid.CellIndex{})
	c.Deposit(Token{})
	assert.Equal(t, 0, c.Count())
}

func TestCache_PeekDoesNotRemove(t *testing.T) {
	c := New(grid.CellIndex{})
	_, ok := c.Peek()
	assert.False(t, ok)

	c.Deposit(tok(0, 0, 0))
	top, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, tok(0, 0, 0), top)
	assert.Equal(t, 1, c.Count())
}

func TestCache_TokensReturnsCopy(t *testing.T) {
	c := New(grid.CellIndex{})
	c.Deposit(tok(0, 0, 0))

	ts := c.Tokens()
	ts[0] = tok(5, 5, 5)
	assert.Equal(t, []Token{tok(0, 0, 0)}, c.Tokens())
}

func TestMomento_RoundTripKeepsOrderAndOrigins(t *testing.T) {
	src := New(grid.CellIndex{I: 4, J: -4})
	src.Deposit(tok(4, -4, 0))
	src.Deposit(tok(-7, 3, 2))
	src.Deposit(tok(4, -4, 1))

	dst := New(grid.CellIndex{I: 4, J: -4})
	require.NoError(t, dst.Restore(src.Momento()))
	assert.Equal(t, src.Tokens(), dst.Tokens())

	a, _ := src.Withdraw()
	b, _ := dst.Withdraw()
	assert.Equal(t, a, b)
}

func TestMomento_EmptyCache(t *testing.T) {
	c := New(grid.CellIndex{})
	assert.Equal(t, Momento("[]"), c.Momento())

	restored, err := FromMomento(grid.CellIndex{}, c.Momento())
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Count())
}

func TestMomento_DoesNotIncludeOwnCell(t *testing.T) {
	a := New(grid.CellIndex{I: 1, J: 1})
	b := New(grid.CellIndex{I: 2, J: 2})
	a.Deposit(tok(0, 0, 0))
	b.Deposit(tok(0, 0, 0))
	assert.Equal(t, a.Momento(), b.Momento())
}

func TestMomento_MalformedLeavesCacheUntouched(t *testing.T) {
	for _, m := range []Momento{"", "{", "not json", `[{"serial":""}]`, `{"serial":"a"}`} {
		c := New(grid.CellIndex{})
		err := c.Restore(m)
		assert.ErrorIs(t, err, ErrMalformedMomento, string(m))
		assert.Equal(t, 0, c.Count(), string(m))
	}
}

func TestTransfer_ConservesTokens(t *testing.T) {
	player := New(grid.CellIndex{})
	world := New(grid.CellIndex{I: 1, J: 1})
	for n := 0; n < 3; n++ {
		world.Deposit(tok(1, 1, n))
	}

	ops := []bool{true, true, false, true, true, true, false, false, false, false}
	for _, collect := range ops {
		if collect {
			_, _ = Transfer(world, player)
		} else {
			_, _ = Transfer(player, world)
		}
		assert.Equal(t, 3, player.Count()+world.Count())
	}

	seen := map[string]int{}
	for _, tk := range append(player.Tokens(), world.Tokens()...) {
		seen[tk.Serial]++
	}
	assert.Equal(t, map[string]int{"1:1#0": 1, "1:1#1": 1, "1:1#2": 1}, seen)
}

func TestTransfer_FromEmptyFails(t *testing.T) {
	from := New(grid.CellIndex{})
	to := New(grid.CellIndex{})
	to.Deposit(tok(0, 0, 0))

	_, err := Transfer(from, to)
	assert.ErrorIs(t, err, ErrEmptyCache)
	assert.Equal(t, 1, to.Count())
}
