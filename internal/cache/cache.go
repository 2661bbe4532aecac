// 包 cache：单元内代币容器及其快照（momento）编解码
package cache

import (
	"errors"

	"geocoin/internal/grid"
)

var (
	// ErrEmptyCache：在没有代币的缓存上取出
	ErrEmptyCache = errors.New("cache is empty")
	// ErrMalformedMomento：快照为空或无法解析
	ErrMalformedMomento = errors.New("malformed momento")
)

// Token：代币；序号与来源单元共同构成其身份，创建后不可变
// 约束：零值表示“不存在”，Deposit 会静默忽略
type Token struct {
	Serial string         `json:"serial"`
	Origin grid.CellIndex `json:"origin"`
}

func (t Token) IsZero() bool { return t.Serial == "" }

// String：展示用的 "i:j#n" 形式
func (t Token) String() string { return t.Serial }

// Cache：某个单元上的代币栈，玩家背包也是一个 Cache
// 约束：取出严格后进先出（LIFO），这是对外契约而非实现细节：快照按插入顺序编码，恢复后的取出顺序与原缓存一致
type Cache struct {
	Cell   grid.CellIndex
	tokens []Token
}

func New(cell grid.CellIndex) *Cache { return &Cache{Cell: cell} }

// Deposit：压入栈顶
func (c *Cache) Deposit(t Token) {
	if t.IsZero() {
		return
	}
	c.tokens = append(c.tokens, t)
}

// Withdraw：弹出最近压入的代币；空缓存返回 ErrEmptyCache
func (c *Cache) Withdraw() (Token, error) {
	n := len(c.tokens)
	if n == 0 {
		return Token{}, ErrEmptyCache
	}
	t := c.tokens[n-1]
	c.tokens[n-1] = Token{}
	c.tokens = c.tokens[:n-1]
	return t, nil
}

// Peek：查看下一次 Withdraw 将返回的代币
func (c *Cache) Peek() (Token, bool) {
	if len(c.tokens) == 0 {
		return Token{}, false
	}
	return c.tokens[len(c.tokens)-1], true
}

func (c *Cache) Count() int { return len(c.tokens) }

// Tokens：按插入顺序返回副本
func (c *Cache) Tokens() []Token {
	out := make([]Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Transfer：从 from 取出一个代币放入 to；from 为空时两边均不变
func Transfer(from, to *Cache) (Token, error) {
	t, err := from.Withdraw()
	if err != nil {
		return Token{}, err
	}
	to.Deposit(t)
	return t, nil
}
