// 包 config：进程配置，先加载 .env 文件再按结构体标签解析环境变量
package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"geocoin/internal/grid"
	"geocoin/internal/store"
	"geocoin/internal/world"
)

// Config：服务配置
// 约束：所有字段都有缺省值，空环境即可启动（文件后端，经典教室起点）
type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	APIBase string `env:"API_BASE" envDefault:"/api"`

	TileWidth        float64 `env:"TILE_WIDTH" envDefault:"1e-4"`
	Radius           int     `env:"VISIBILITY_RADIUS" envDefault:"8"`
	Seed             string  `env:"SEED" envDefault:"In the beginning, the universe was created. This has made a lot of people very angry and been widely regarded as a bad move."`
	SpawnProbability float64 `env:"SPAWN_PROBABILITY" envDefault:"0.1"`
	MaxInitialTokens int     `env:"MAX_INITIAL_TOKENS" envDefault:"5"`
	RegistryCap      int     `env:"REGISTRY_CAP" envDefault:"0"`
	ClampRestored    bool    `env:"CLAMP_RESTORED" envDefault:"false"`

	StartLat  float64 `env:"START_LAT" envDefault:"36.98949379578401"`
	StartLong float64 `env:"START_LONG" envDefault:"-122.06277128548504"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StoreKey     string `env:"STORE_KEY" envDefault:"mapState"`
	StoreFile    string `env:"STORE_FILE" envDefault:"data/state.json"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"data/geocoin.db"`

	GeoIPPath string `env:"GEOIP_PATH"`

	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitQPS     int  `env:"RATE_LIMIT_QPS" envDefault:"20"`

	TLSEnable   bool   `env:"TLS_ENABLE" envDefault:"false"`
	TLSCertPath string `env:"TLS_CERT_PATH" envDefault:"data/tls/cert.pem"`
	TLSKeyPath  string `env:"TLS_KEY_PATH" envDefault:"data/tls/key.pem"`
}

// LoadDotEnv：加载工作目录与 data/env 下的 .env，文件缺失时忽略
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// Load：加载 .env、解析环境变量并校验
func Load() (Config, error) {
	LoadDotEnv()
	return Parse()
}

// Parse：只解析当前进程环境变量（测试使用）
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate：校验数值范围与后端名称
func (c Config) Validate() error {
	var errs []error
	if c.TileWidth <= 0 {
		errs = append(errs, fmt.Errorf("TILE_WIDTH must be positive, got %v", c.TileWidth))
	} else if 180/c.TileWidth > math.MaxInt32 {
		// 约束：全球单元索引（180/TILE_WIDTH）需落在 int32 内
		errs = append(errs, fmt.Errorf("TILE_WIDTH %v is too small: cell indices would exceed int32", c.TileWidth))
	}
	if c.Radius < 0 {
		errs = append(errs, fmt.Errorf("VISIBILITY_RADIUS must be >= 0, got %d", c.Radius))
	}
	if c.SpawnProbability < 0 || c.SpawnProbability > 1 {
		errs = append(errs, fmt.Errorf("SPAWN_PROBABILITY must be in [0,1], got %v", c.SpawnProbability))
	}
	if c.MaxInitialTokens < 0 {
		errs = append(errs, fmt.Errorf("MAX_INITIAL_TOKENS must be >= 0, got %d", c.MaxInitialTokens))
	}
	switch c.StoreBackend {
	case "redis", "postgres", "sqlite", "file", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of redis|postgres|sqlite|file|memory", c.StoreBackend))
	}
	if c.RateLimitEnabled && c.RateLimitQPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_QPS must be positive, got %d", c.RateLimitQPS))
	}
	return errors.Join(errs...)
}

// World：棋盘参数
func (c Config) World() world.Options {
	return world.Options{
		TileWidth:        c.TileWidth,
		Radius:           c.Radius,
		Seed:             c.Seed,
		SpawnProbability: c.SpawnProbability,
		MaxInitialTokens: c.MaxInitialTokens,
		RegistryCap:      c.RegistryCap,
		ClampRestored:    c.ClampRestored,
	}
}

// Store：持久化后端参数
func (c Config) Store() store.Options {
	return store.Options{Backend: c.StoreBackend, Key: c.StoreKey, File: c.StoreFile, SQLitePath: c.SQLitePath}
}

func (c Config) Start() grid.GeoPoint { return grid.GeoPoint{Lat: c.StartLat, Long: c.StartLong} }
