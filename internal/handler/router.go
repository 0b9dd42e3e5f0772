package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/regman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// コース検索
	SearchService SearchServiceInterface

	// インデックス管理
	IndexService IndexServiceInterface

	// 履修登録
	EnrollService EnrollServiceInterface

	// Prometheusスクレイプ用ハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeadersMiddleware → CORSMiddleware → RequestIDMiddleware → RecoveryMiddleware → LoggingMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// セキュリティヘッダーとCORSは全ルートに効くよう最上位に適用する
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	searchHandler := NewSearchHandler(deps.SearchService)
	indexHandler := NewIndexHandler(deps.IndexService)
	enrollHandler := NewEnrollHandler(deps.EnrollService)

	// --- 運用ルート（レート制限の外） ---

	r.Get("/health", healthCheck)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// コース検索
		r.Post("/api/courses/search", searchHandler.Search)

		// インデックス管理
		r.Route("/api/index", func(r chi.Router) {
			r.Post("/reindex", indexHandler.Reindex)
			r.Get("/status", indexHandler.Status)
		})

		// POST /api/enroll - 履修登録（登録専用レート制限を追加）
		r.With(deps.RateLimiter.EnrollMiddleware()).Post("/api/enroll", enrollHandler.Enroll)
	})

	return r
}

// healthCheck はプロセスの生存確認に応答する。
// ポータルへの疎通確認は行わない（ポータル停止中でもAPIサーバー自体は健全）。
func healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
