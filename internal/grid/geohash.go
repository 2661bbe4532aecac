package grid

// 文档注释：轻量 geohash 编码（base32）
// 约束：仅用于单元标签与外部缓存键；精度 9 约 4.8m×4.8m，足以区分 1e-4 度的瓦片
var base32 = []byte("0123456789bcdefghjkmnpqrstuvwxyz")

// Geohash：把点编码为 precision 个字符的 geohash
func Geohash(p GeoPoint, precision int) string {
	latInt := [2]float64{-90, 90}
	lonInt := [2]float64{-180, 180}
	bits := [5]int{16, 8, 4, 2, 1}
	bit, ch := 0, 0
	even := true
	out := make([]byte, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lonInt[0] + lonInt[1]) / 2
			if p.Long >= mid {
				ch |= bits[bit]
				lonInt[0] = mid
			} else {
				lonInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if p.Lat >= mid {
				ch |= bits[bit]
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out = append(out, base32[ch])
			bit, ch = 0, 0
		}
	}
	return string(out)
}
