// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/regman/internal/config"
	"github.com/hitoshi/regman/internal/enroll"
	"github.com/hitoshi/regman/internal/handler"
	"github.com/hitoshi/regman/internal/index"
	"github.com/hitoshi/regman/internal/logger"
	"github.com/hitoshi/regman/internal/metrics"
	"github.com/hitoshi/regman/internal/middleware"
	"github.com/hitoshi/regman/internal/portal"
	"github.com/hitoshi/regman/internal/search"
	"github.com/hitoshi/regman/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ポータルURLの静的検証。内部アドレスを指す設定ミスは起動時に落とす
	guard := security.NewSSRFGuard(cfg.PortalAllowPrivate)
	if err := guard.ValidateURL(cfg.PortalBaseURL); err != nil {
		return nil, fmt.Errorf("invalid portal base URL: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("portal_base_url", cfg.PortalBaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. ポータルアダプタの初期化
	ssrfGuard := security.NewSSRFGuard(cfg.PortalAllowPrivate)
	dialect := portal.DefaultDialect()
	adapter := portal.NewClient(cfg.PortalBaseURL, dialect, ssrfGuard, cfg.PageTimeout, log)

	// 3. インデックスキャッシュとビルダーの初期化
	store := index.NewStore(cfg.CacheTTL)
	builder := index.NewBuilder(adapter, store, dialect, log, collector, cfg.RebuildBudget)

	// 4. 検索オーケストレーターの初期化
	orchestrator := search.NewOrchestrator(adapter, store, builder, dialect, log, collector, search.Config{
		DefaultLimit:       cfg.DefaultLimit,
		ScanBudget:         cfg.ScanBudget,
		ScanPlanPointsBase: cfg.ScanPlanPointsBase,
		ScanPlanPointsHint: cfg.ScanPlanPointsHint,
		BroadScanCap:       cfg.BroadScanCap,
	})

	// 5. 履修登録サービスの初期化
	sanitizer := security.NewSnippetSanitizer()
	enroller := enroll.NewEnroller(adapter, enroll.GermanMarkers(), dialect.ConfirmFormHints, sanitizer, log, collector)

	// 6. ルーターの構築
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitEnroll > 0 {
		rateLimiterCfg.EnrollRate = rate.Limit(float64(cfg.RateLimitEnroll) / 60.0)
		rateLimiterCfg.EnrollBurst = cfg.RateLimitEnroll
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            log,

		SearchService: orchestrator,
		IndexService:  handler.NewIndexServiceAdapter(builder, store),
		EnrollService: enroller,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	// WriteTimeoutはライブスキャンを挟む検索が完了できる長さを確保する
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
