// spawn-map：打印某个种子在索引范围内的确定性生成布局，用于肉眼核对可复现性
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"geocoin/internal/grid"
	"geocoin/internal/luck"
	"geocoin/internal/world"
)

func main() {
	seed := flag.String("seed", world.DefaultSeed, "generator seed")
	prob := flag.Float64("p", luck.DefaultSpawnProbability, "spawn probability")
	maxTokens := flag.Int("max", luck.DefaultMaxInitialTokens, "max initial tokens")
	ci := flag.Int("i", 0, "center row index")
	cj := flag.Int("j", 0, "center column index")
	radius := flag.Int("r", 10, "half width of the printed window")
	flag.Parse()

	g := luck.NewGenerator(*seed, *prob, *maxTokens)
	n := render(os.Stdout, g, grid.CellIndex{I: *ci, J: *cj}, *radius)
	side := 2*(*radius) + 1
	fmt.Printf("\n%d/%d cells spawn (%.3f, expected %.3f)\n", n, side*side, float64(n)/float64(side*side), *prob)
}

// render：北在上、东在右；有缓存的单元打印初始代币数，空缓存打印 o，无缓存打印 .
func render(w io.Writer, g luck.Generator, center grid.CellIndex, r int) int {
	spawned := 0
	for i := center.I + r; i >= center.I-r; i-- {
		fmt.Fprintf(w, "%8d ", i)
		for j := center.J - r; j <= center.J+r; j++ {
			c := grid.CellIndex{I: i, J: j}
			switch {
			case !g.ShouldSpawn(c):
				fmt.Fprint(w, ".")
			case g.InitialTokenCount(c) == 0:
				spawned++
				fmt.Fprint(w, "o")
			default:
				spawned++
				fmt.Fprint(w, g.InitialTokenCount(c))
			}
		}
		fmt.Fprintln(w)
	}
	return spawned
}
