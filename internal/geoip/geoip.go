// 包 geoip：基于 MaxMind 城市库的定位源，把客户端 IP 换算为一次性定位校正
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"

	"geocoin/internal/grid"
	"geocoin/internal/logger"
)

var (
	// ErrDisabled：未配置 GEOIP_PATH
	ErrDisabled = errors.New("geoip: locator not configured")
	// ErrNoLocation：库中没有该 IP 的坐标
	ErrNoLocation = errors.New("geoip: no location for address")
)

// Locator：IP 到坐标的查询器；零值或 nil 表示未启用
type Locator struct {
	db *geoip2.Reader
}

// Open：打开 mmdb 文件；path 为空时返回 nil 定位器（不视为错误）
func Open(path string) (*Locator, error) {
	if path == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	md := db.Metadata()
	logger.L().Info("geoip_open_ok", "path", path, "type", md.DatabaseType, "build", md.BuildEpoch, "ip_version", md.IPVersion)
	return &Locator{db: db}, nil
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Metadata：数据库元信息
func (l *Locator) Metadata() (maxminddb.Metadata, bool) {
	if l == nil || l.db == nil {
		return maxminddb.Metadata{}, false
	}
	return l.db.Metadata(), true
}

// Locate：查询 IP 对应的城市坐标
// 约束：库中记录的坐标为 (0,0) 且无精度半径时视为无坐标
func (l *Locator) Locate(ip net.IP) (grid.GeoPoint, error) {
	if l == nil || l.db == nil {
		return grid.GeoPoint{}, ErrDisabled
	}
	if ip == nil {
		return grid.GeoPoint{}, fmt.Errorf("%w: empty address", ErrNoLocation)
	}
	rec, err := l.db.City(ip)
	if err != nil {
		return grid.GeoPoint{}, fmt.Errorf("geoip: lookup %s: %w", ip, err)
	}
	loc := rec.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && loc.AccuracyRadius == 0 {
		return grid.GeoPoint{}, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}
	logger.L().Debug("geoip_locate", "ip", ip.String(), "lat", loc.Latitude, "long", loc.Longitude, "accuracy_km", loc.AccuracyRadius)
	return grid.GeoPoint{Lat: loc.Latitude, Long: loc.Longitude}, nil
}
