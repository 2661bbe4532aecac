package cache

import (
	"encoding/json"
	"fmt"

	"geocoin/internal/grid"
)

// Momento：缓存内容的序列化形式，不含缓存自身所在单元（外部按单元作为键保存）
type Momento string

// 线上格式：[{"serial":"1:2#0","i":1,"j":2}, ...]
type momentoToken struct {
	Serial string `json:"serial"`
	I      int    `json:"i"`
	J      int    `json:"j"`
}

// Momento：按插入顺序编码全部代币；空缓存编码为 "[]"
func (c *Cache) Momento() Momento {
	out := make([]momentoToken, len(c.tokens))
	for k, t := range c.tokens {
		out[k] = momentoToken{Serial: t.Serial, I: t.Origin.I, J: t.Origin.J}
	}
	b, _ := json.Marshal(out)
	return Momento(b)
}

// Restore：用快照替换当前代币序列
// 约束：快照为空串、无法解析或含空序号时返回 ErrMalformedMomento，缓存保持调用前状态
func (c *Cache) Restore(m Momento) error {
	if m == "" {
		return fmt.Errorf("%w: empty", ErrMalformedMomento)
	}
	var raw []momentoToken
	if err := json.Unmarshal([]byte(m), &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMomento, err)
	}
	tokens := make([]Token, 0, len(raw))
	for _, r := range raw {
		if r.Serial == "" {
			return fmt.Errorf("%w: token without serial", ErrMalformedMomento)
		}
		tokens = append(tokens, Token{Serial: r.Serial, Origin: grid.CellIndex{I: r.I, J: r.J}})
	}
	c.tokens = tokens
	return nil
}

// FromMomento：创建缓存并恢复快照；快照损坏时返回空缓存与错误，由调用方决定是否记录
func FromMomento(cell grid.CellIndex, m Momento) (*Cache, error) {
	c := New(cell)
	err := c.Restore(m)
	return c, err
}
