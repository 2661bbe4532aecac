package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"geocoin/internal/grid"
	"geocoin/internal/luck"
)

func TestRenderIsReproducible(t *testing.T) {
	g := luck.NewGenerator("map", 0.3, 5)
	var a, b bytes.Buffer
	na := render(&a, g, grid.CellIndex{I: 4, J: -4}, 3)
	nb := render(&b, g, grid.CellIndex{I: 4, J: -4}, 3)

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, na, nb)
	lines := strings.Split(strings.TrimRight(a.String(), "\n"), "\n")
	assert.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "7 "))
}

func TestRenderAllOrNothing(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, render(&buf, luck.NewGenerator("x", 0, 5), grid.CellIndex{}, 2))
	assert.Equal(t, 25, render(&buf, luck.NewGenerator("x", 1, 5), grid.CellIndex{}, 2))
}
