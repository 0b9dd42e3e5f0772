// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Portal
	PortalBaseURL      string        // ポータルのログインURL（必須）
	PageTimeout        time.Duration // ポータルへの1ページ取得のタイムアウト
	PortalAllowPrivate bool          // プライベートネットワーク上の開発用ポータルを許可する

	// Index
	CacheTTL      time.Duration // キャッシュの鮮度判定（これを超えると陳腐化）
	RebuildBudget time.Duration // 再構築の壁時計バジェット（超過で部分結果を公開）

	// Search
	ScanBudget         time.Duration // ライブスキャン1回の壁時計バジェット
	ScanPlanPointsBase int           // プランポイント名ヒットなし時の走査数
	ScanPlanPointsHint int           // プランポイント名ヒットあり時の走査数
	BroadScanCap       int           // 広域スキャンの収集上限
	DefaultLimit       int           // limit未指定時の検索結果上限

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitEnroll  int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.PortalBaseURL = os.Getenv("PORTAL_BASE_URL")
	if cfg.PortalBaseURL == "" {
		return nil, fmt.Errorf("required environment variable is not set: PORTAL_BASE_URL")
	}

	// Optional fields with defaults
	cfg.PageTimeout = getEnvDuration("PAGE_TIMEOUT", 10*time.Second)
	cfg.PortalAllowPrivate = getEnvBool("PORTAL_ALLOW_PRIVATE", false)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 600*time.Second)
	cfg.RebuildBudget = getEnvDuration("REBUILD_BUDGET", 25*time.Second)
	cfg.ScanBudget = getEnvDuration("SCAN_BUDGET", 4*time.Second)
	cfg.ScanPlanPointsBase = getEnvInt("SCAN_PLAN_POINTS_BASE", 3)
	cfg.ScanPlanPointsHint = getEnvInt("SCAN_PLAN_POINTS_HINT", 6)
	cfg.BroadScanCap = getEnvInt("BROAD_SCAN_CAP", 60)
	cfg.DefaultLimit = getEnvInt("SEARCH_DEFAULT_LIMIT", 20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitEnroll = getEnvInt("RATE_LIMIT_ENROLL", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
