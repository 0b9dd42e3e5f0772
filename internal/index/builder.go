package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/portal"
)

// MetricsRecorder はインデックス再構築のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRebuildSuccess(itemCount int, partial bool)
	RecordRebuildFailure()
	RecordRebuildDuration(d time.Duration)
}

// nopMetrics はメトリクス未設定時のダミー実装。
type nopMetrics struct{}

func (nopMetrics) RecordRebuildSuccess(int, bool) {}

func (nopMetrics) RecordRebuildFailure() {}

func (nopMetrics) RecordRebuildDuration(time.Duration) {}

// Builder はアカウントのインデックスを非同期に構築する。
// 再構築は投げっぱなしのバックグラウンドタスクであり、
// 呼び出し元のリクエストは既存のキャッシュ状態で即座に応答する。
type Builder struct {
	adapter portal.Adapter
	store   *Store
	dialect portal.Dialect
	logger  *slog.Logger
	metrics MetricsRecorder
	budget  time.Duration
}

// NewBuilder はBuilderの新しいインスタンスを生成する。
// budgetが0以下の場合はデフォルト値25秒を使用する。
// metricsにnilを渡した場合は記録を行わない。
func NewBuilder(
	adapter portal.Adapter,
	store *Store,
	dialect portal.Dialect,
	logger *slog.Logger,
	metrics MetricsRecorder,
	budget time.Duration,
) *Builder {
	if budget <= 0 {
		budget = 25 * time.Second
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Builder{
		adapter: adapter,
		store:   store,
		dialect: dialect,
		logger:  logger,
		metrics: metrics,
		budget:  budget,
	}
}

// EnsureIndex は必要に応じてビルドを1つだけ起動する。
// キャッシュがTTL内でforceが偽の場合、および同一アカウントのビルドが
// 進行中の場合は何もしない。戻り値はビルドを起動したかどうか。
// 起動されたビルドはリクエストのキャンセルから切り離されて実行される。
func (b *Builder) EnsureIndex(ctx context.Context, username, password string, force bool) bool {
	if !force && b.store.Fresh(username) {
		return false
	}

	if _, ok := b.store.TryBeginBuild(username); !ok {
		return false
	}

	go b.runBuild(context.WithoutCancel(ctx), username, password)
	return true
}

// runBuild はインデックスを実際に構築するワーカー本体。
// 壁時計の時間バジェットを超過した時点で列挙を打ち切り、
// それまでに収集した部分結果を公開する（完全性より可用性を優先）。
// 失敗時は直前のキャッシュを温存し、エラーのみを記録する。
func (b *Builder) runBuild(ctx context.Context, username, password string) {
	start := time.Now()
	defer func() {
		b.metrics.RecordRebuildDuration(time.Since(start))
	}()

	session, err := b.adapter.Login(ctx, username, password)
	if err != nil {
		b.logger.Error("インデックス構築のログインに失敗しました",
			slog.String("account", username),
			slog.String("error", err.Error()),
		)
		b.store.FailBuild(username, err)
		b.metrics.RecordRebuildFailure()
		return
	}

	refs, err := b.adapter.ListPlanPoints(ctx, session)
	if err != nil {
		b.logger.Error("プランポイントの列挙に失敗しました",
			slog.String("account", username),
			slog.String("error", err.Error()),
		)
		b.store.FailBuild(username, err)
		b.metrics.RecordRebuildFailure()
		return
	}

	deadline := start.Add(b.budget)
	items := make([]model.CourseItem, 0, 64)
	partial := false
	skipped := 0

	for _, ref := range refs {
		// バジェット判定はアダプタ呼び出しの合間に行う（非プリエンプティブ）。
		// 実行中の1呼び出しはページタイムアウト分だけ超過しうる。
		if time.Now().After(deadline) {
			partial = true
			break
		}

		raws, err := b.adapter.FetchCourses(ctx, session, ref)
		if err != nil {
			// 一時的な取得失敗は該当プランポイントをスキップして継続する
			b.logger.Warn("コース一覧の取得に失敗したためスキップします",
				slog.String("account", username),
				slog.String("plan_point_id", ref.ID),
				slog.String("error", err.Error()),
			)
			skipped++
			continue
		}

		for _, raw := range raws {
			items = append(items, portal.Normalize(b.dialect, ref.ID, raw))
		}
	}

	// 1件も収集できないままスキップだけが発生した場合、空リストの公開は
	// 直前の正常なキャッシュを消してしまうため、ビルド失敗として扱う。
	if len(items) == 0 && skipped > 0 {
		err := fmt.Errorf("no plan point could be fetched (%d skipped)", skipped)
		b.logger.Error("全プランポイントの取得に失敗したため結果を公開しません",
			slog.String("account", username),
			slog.Int("skipped", skipped),
		)
		b.store.FailBuild(username, err)
		b.metrics.RecordRebuildFailure()
		return
	}

	b.store.CompleteBuild(username, items)
	b.metrics.RecordRebuildSuccess(len(items), partial)

	b.logger.Info("インデックス構築が完了しました",
		slog.String("account", username),
		slog.Int("item_count", len(items)),
		slog.Int("plan_point_count", len(refs)),
		slog.Int("skipped", skipped),
		slog.Bool("partial", partial),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
