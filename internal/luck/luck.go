// 包 luck：确定性伪随机（种子哈希），决定哪些单元生成缓存以及初始代币数量
package luck

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Luck：把任意字符串映射到 [0, 1) 的确定性值
// 约束：纯函数，跨进程、跨重启结果一致；取 xxhash64 高 53 位以获得均匀的 float64
func Luck(key string) float64 {
	return float64(xxhash.Sum64String(key)>>11) / (1 << 53)
}

// Key：按 "i,j,parts..." 规则拼接哈希键
func Key(i, j int, parts ...string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(i))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(j))
	for _, p := range parts {
		b.WriteByte(',')
		b.WriteString(p)
	}
	return b.String()
}
