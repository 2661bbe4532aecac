package luck

import (
	"fmt"
	"math"

	"geocoin/internal/cache"
	"geocoin/internal/grid"
)

const (
	DefaultSpawnProbability = 0.1
	DefaultMaxInitialTokens = 5

	// 初始数量的域分隔串，与生成判定使用同一哈希族但互相独立
	coinDomain = "initial-coins"
)

// Generator：给定种子，决定单元是否生成缓存以及缓存的初始内容
type Generator struct {
	Seed             string
	SpawnProbability float64
	MaxInitialTokens int
}

func NewGenerator(seed string, spawnProbability float64, maxInitial int) Generator {
	return Generator{Seed: seed, SpawnProbability: spawnProbability, MaxInitialTokens: maxInitial}
}

// ShouldSpawn：Luck("i,j,seed") < SpawnProbability
func (g Generator) ShouldSpawn(c grid.CellIndex) bool {
	return Luck(Key(c.I, c.J, g.Seed)) < g.SpawnProbability
}

// InitialTokenCount：floor(Luck("i,j,seed,initial-coins") * MaxInitialTokens)
func (g Generator) InitialTokenCount(c grid.CellIndex) int {
	if g.MaxInitialTokens <= 0 {
		return 0
	}
	return int(math.Floor(Luck(Key(c.I, c.J, g.Seed, coinDomain)) * float64(g.MaxInitialTokens)))
}

// TokenSerial：单元内的确定性序号 "i:j#ordinal"
func (g Generator) TokenSerial(c grid.CellIndex, ordinal int) string {
	return fmt.Sprintf("%d:%d#%d", c.I, c.J, ordinal)
}

// Populate：为单元创建一个全新的缓存并按序号 0..n-1 放入初始代币
func (g Generator) Populate(c grid.CellIndex) *cache.Cache {
	out := cache.New(c)
	n := g.InitialTokenCount(c)
	for k := 0; k < n; k++ {
		out.Deposit(cache.Token{Serial: g.TokenSerial(c, k), Origin: c})
	}
	return out
}

// Genuine：代币是否可能由生成器产生（来源单元确实生成缓存，且序号小于其初始数量）
// 背景：用于恢复快照时的可选校验，拒绝伪造或损坏的代币
func (g Generator) Genuine(t cache.Token) bool {
	var i, j, n int
	if _, err := fmt.Sscanf(t.Serial, "%d:%d#%d", &i, &j, &n); err != nil {
		return false
	}
	if (grid.CellIndex{I: i, J: j}) != t.Origin || g.TokenSerial(t.Origin, n) != t.Serial {
		return false
	}
	return n >= 0 && g.ShouldSpawn(t.Origin) && n < g.InitialTokenCount(t.Origin)
}
