// 包 grid：坐标映射与网格单元的规范身份（flyweight）
package grid

import (
	"fmt"
	"math"
)

// GeoPoint：连续坐标（纬度/经度，单位：度），值类型可自由复制
type GeoPoint struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// CellIndex：离散网格坐标，i/j 相同即相等
type CellIndex struct {
	I int `json:"i"`
	J int `json:"j"`
}

func (c CellIndex) String() string { return fmt.Sprintf("%d,%d", c.I, c.J) }

// Offset：返回平移 (di, dj) 后的索引
func (c CellIndex) Offset(di, dj int) CellIndex { return CellIndex{I: c.I + di, J: c.J + dj} }

// Bounds：单元边界，顺序为左上、右下（与前端地图库的矩形构造参数一致）
type Bounds struct {
	TopLeft     GeoPoint `json:"top_left"`
	BottomRight GeoPoint `json:"bottom_right"`
}

// Contains：点是否落在边界内（下界闭、上界开，与 CellFor 的向下取整一致）
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.TopLeft.Lat && p.Lat < b.BottomRight.Lat &&
		p.Long >= b.TopLeft.Long && p.Long < b.BottomRight.Long
}

// Mapper：在固定瓦片宽度下完成坐标与网格的互相转换
// 约束：TileWidth 必须为正数；所有方法均为纯函数
type Mapper struct {
	TileWidth float64
}

// CellFor：i = floor(lat / W)，j = floor(long / W)
func (m Mapper) CellFor(p GeoPoint) CellIndex {
	return CellIndex{
		I: int(math.Floor(p.Lat / m.TileWidth)),
		J: int(math.Floor(p.Long / m.TileWidth)),
	}
}

// PointFor：返回单元中心点；PointFor(CellFor(p)) 一般不等于 p
func (m Mapper) PointFor(c CellIndex) GeoPoint {
	return GeoPoint{
		Lat:  float64(c.I)*m.TileWidth + m.TileWidth/2,
		Long: float64(c.J)*m.TileWidth + m.TileWidth/2,
	}
}

// BoundsFor：单元边界
func (m Mapper) BoundsFor(c CellIndex) Bounds {
	return Bounds{
		TopLeft:     GeoPoint{Lat: float64(c.I) * m.TileWidth, Long: float64(c.J) * m.TileWidth},
		BottomRight: GeoPoint{Lat: float64(c.I+1) * m.TileWidth, Long: float64(c.J+1) * m.TileWidth},
	}
}

// Direction：移动控制的四个方向
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// ParseDirection：解析 north/east/south/west（也接受首字母）
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "north", "n", "up":
		return North, true
	case "east", "e", "right":
		return East, true
	case "south", "s", "down":
		return South, true
	case "west", "w", "left":
		return West, true
	}
	return 0, false
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return "unknown"
}

// Delta：纬度/经度方向上的单位偏移，北为纬度增加，东为经度增加
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 1, 0
	case East:
		return 0, 1
	case South:
		return -1, 0
	case West:
		return 0, -1
	}
	return 0, 0
}

// Step：按方向移动恰好一个瓦片宽度
func (m Mapper) Step(p GeoPoint, d Direction) GeoPoint {
	di, dj := d.Delta()
	return GeoPoint{
		Lat:  p.Lat + float64(di)*m.TileWidth,
		Long: p.Long + float64(dj)*m.TileWidth,
	}
}
