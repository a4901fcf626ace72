package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jengzang/wander-backend-go/internal/dedup"
)

// Config 应用配置
type Config struct {
	Port string

	// Storage
	StoreDriver   string // sqlite | postgres | redis
	DBPath        string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret string
	AuthMode  string // jwt | header

	// Cells and stats
	DedupRadiusMeters float64
	DedupMode         dedup.Mode
	CellRadiusKm      float64
	Location          *time.Location
	AppendMaxAttempts int

	// Regions
	RegionCatalogPath string
	GeocoderURL       string
	GeocoderUserAgent string
	GeocodeCacheSize  int
	GeocodeCacheTTL   time.Duration
	SnapshotCacheSize int

	// HTTP
	RateLimit  int
	RateWindow time.Duration

	LogLevel  string
	LogFormat string
}

var defaults = map[string]interface{}{
	"port":                ":8080",
	"store_driver":        "sqlite",
	"db_path":             "./data/wander/wander.db",
	"postgres_dsn":        "",
	"redis_addr":          "127.0.0.1:6379",
	"redis_password":      "",
	"redis_db":            0,
	"jwt_secret":          "your-secret-key-change-in-production",
	"auth_mode":           "jwt",
	"dedup_radius_meters": dedup.DefaultRadiusMeters,
	"dedup_mode":          string(dedup.ModeRadius),
	"cell_radius_km":      1.0,
	"time_zone":           "UTC",
	"append_max_attempts": 3,
	"region_catalog_path": "",
	"geocoder_url":        "https://nominatim.openstreetmap.org",
	"geocoder_user_agent": "wander-backend-go",
	"geocode_cache_size":  4096,
	"geocode_cache_ttl":   "24h",
	"snapshot_cache_size": 1024,
	"rate_limit":          120,
	"rate_window":         "1m",
	"log_level":           "info",
	"log_format":          "text",
}

// Load 加载配置: .env files, then environment variables, then an optional
// config file named by WANDER_CONFIG, then defaults.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("data/env/.env")

	v := viper.New()
	v.AutomaticEnv()
	if file := v.GetString("wander_config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	mode, err := dedup.ParseMode(strings.ToLower(v.GetString("dedup_mode")))
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(v.GetString("time_zone"))
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone: %w", err)
	}

	driver := strings.ToLower(v.GetString("store_driver"))
	switch driver {
	case "sqlite", "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown store_driver %q", driver)
	}
	if driver == "postgres" && v.GetString("postgres_dsn") == "" {
		return nil, fmt.Errorf("postgres_dsn is required when store_driver is postgres")
	}

	authMode := strings.ToLower(v.GetString("auth_mode"))
	if authMode != "jwt" && authMode != "header" {
		return nil, fmt.Errorf("unknown auth_mode %q", authMode)
	}

	attempts := v.GetInt("append_max_attempts")
	if attempts < 1 {
		attempts = 1
	}

	return &Config{
		Port:              v.GetString("port"),
		StoreDriver:       driver,
		DBPath:            v.GetString("db_path"),
		PostgresDSN:       v.GetString("postgres_dsn"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		JWTSecret:         v.GetString("jwt_secret"),
		AuthMode:          authMode,
		DedupRadiusMeters: v.GetFloat64("dedup_radius_meters"),
		DedupMode:         mode,
		CellRadiusKm:      v.GetFloat64("cell_radius_km"),
		Location:          loc,
		AppendMaxAttempts: attempts,
		RegionCatalogPath: v.GetString("region_catalog_path"),
		GeocoderURL:       v.GetString("geocoder_url"),
		GeocoderUserAgent: v.GetString("geocoder_user_agent"),
		GeocodeCacheSize:  v.GetInt("geocode_cache_size"),
		GeocodeCacheTTL:   v.GetDuration("geocode_cache_ttl"),
		SnapshotCacheSize: v.GetInt("snapshot_cache_size"),
		RateLimit:         v.GetInt("rate_limit"),
		RateWindow:        v.GetDuration("rate_window"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
	}, nil
}
