package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/regman/internal/index"
	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/portal"
	"github.com/hitoshi/regman/internal/textutil"
)

// CacheReader はインデックスキャッシュ読み取りのインターフェース。
// index.Storeを抽象化してテスタビリティを向上させる。
type CacheReader interface {
	Snapshot(account string) index.Snapshot
	Fresh(account string) bool
}

// IndexEnsurer はバックグラウンドビルド起動のインターフェース。
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context, username, password string, force bool) bool
}

// MetricsRecorder は検索メトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordSearchTier(tier string)
	RecordScanLatency(d time.Duration)
}

// nopMetrics はメトリクス未設定時のダミー実装。
type nopMetrics struct{}

func (nopMetrics) RecordSearchTier(string) {}

func (nopMetrics) RecordScanLatency(time.Duration) {}

// Config は検索ティアの閾値設定。
// 値はいずれも代表値であり、環境変数で調整できる。
type Config struct {
	DefaultLimit       int           // limit未指定時の結果上限
	ScanBudget         time.Duration // ライブスキャン1回の壁時計バジェット
	ScanPlanPointsBase int           // プランポイント名ヒットなし時の走査数
	ScanPlanPointsHint int           // プランポイント名ヒットあり時の走査数
	BroadScanCap       int           // 広域スキャンの収集上限
}

// DefaultConfig はデフォルトの検索設定を返す。
func DefaultConfig() Config {
	return Config{
		DefaultLimit:       20,
		ScanBudget:         4 * time.Second,
		ScanPlanPointsBase: 3,
		ScanPlanPointsHint: 6,
		BroadScanCap:       60,
	}
}

// Orchestrator はキャッシュとライブスキャンを組み合わせた
// 4ティアのフォールバック検索パイプラインを実行する。
//
//	ティア1: キャッシュ厳格マッチ（EnsureIndexを副作用として非ブロッキング起動）
//	ティア2: 時間制限付きライブスキャン + 厳格マッチ
//	ティア3: キャッシュ緩和マッチ
//	ティア4: 広域ライブスキャン + 緩和マッチ
//
// 各ティアは直前のティアがヒットゼロの場合のみ実行される。
type Orchestrator struct {
	adapter portal.Adapter
	cache   CacheReader
	ensurer IndexEnsurer
	dialect portal.Dialect
	logger  *slog.Logger
	metrics MetricsRecorder
	cfg     Config
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成する。
// metricsにnilを渡した場合は記録を行わない。
func NewOrchestrator(
	adapter portal.Adapter,
	cache CacheReader,
	ensurer IndexEnsurer,
	dialect portal.Dialect,
	logger *slog.Logger,
	metrics MetricsRecorder,
	cfg Config,
) *Orchestrator {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.ScanBudget <= 0 {
		cfg.ScanBudget = 4 * time.Second
	}
	if cfg.ScanPlanPointsBase <= 0 {
		cfg.ScanPlanPointsBase = 3
	}
	if cfg.ScanPlanPointsHint <= 0 {
		cfg.ScanPlanPointsHint = 6
	}
	if cfg.BroadScanCap <= 0 {
		cfg.BroadScanCap = 60
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Orchestrator{
		adapter: adapter,
		cache:   cache,
		ensurer: ensurer,
		dialect: dialect,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Search はクエリに対するベストエフォート検索を実行する。
// 常に構造化された結果（空のitemsを含む）とメタデータを返す。
// エラーを返すのは、認証失敗、または全ティアが空振りかつ
// キャッシュが一度も構築されていない状態でスキャンが失敗した場合のみ。
func (o *Orchestrator) Search(ctx context.Context, username, password, q string, limit int) (*model.SearchResult, error) {
	tokens := textutil.Tokenize(q)

	// 副作用: 陳腐化していればバックグラウンドビルドを起動する（非ブロッキング）
	o.ensurer.EnsureIndex(ctx, username, password, false)

	snap := o.cache.Snapshot(username)
	meta := model.SearchMeta{
		CacheExists: snap.Exists,
		Building:    snap.Building,
		Fresh:       o.cache.Fresh(username),
		LastError:   snap.LastError,
	}
	if snap.Exists {
		t := snap.UpdatedAt
		meta.CacheUpdatedAt = &t
	}

	if limit <= 0 {
		limit = o.cfg.DefaultLimit
	}

	// 空クエリはフィルタなしでキャッシュ全件を返す
	if len(tokens) == 0 {
		o.metrics.RecordSearchTier("cache_full")
		return &model.SearchResult{Items: snap.Items, Meta: meta}, nil
	}

	// ティア1: キャッシュ厳格マッチ
	if items := FilterStrict(snap.Items, tokens, limit); len(items) > 0 {
		o.metrics.RecordSearchTier("cache_strict")
		return &model.SearchResult{Items: items, Meta: meta}, nil
	}

	// ライブスキャンのセッションと列挙結果はティア2/4で共有する
	scan := &liveScan{o: o, username: username, password: password}

	// ティア2: 限定ライブスキャン + 厳格マッチ
	// コールドキャッシュの初回クエリに空振りを返さないための存在
	items, err := scan.run(ctx, tokens, limit, false)
	if err != nil {
		var authErr *portal.AuthError
		if errors.As(err, &authErr) {
			// 認証失敗はティアで握りつぶさず即座に表面化する
			return nil, err
		}
	}
	if len(items) > 0 {
		o.metrics.RecordSearchTier("provisional_strict")
		meta.Provisional = true
		return &model.SearchResult{Items: items, Meta: meta}, nil
	}

	// ティア3: キャッシュ緩和マッチ（キャッシュが1件でもある場合のみ）
	if len(snap.Items) > 0 {
		if items := FilterRelaxed(snap.Items, tokens, limit); len(items) > 0 {
			o.metrics.RecordSearchTier("cache_relaxed")
			return &model.SearchResult{Items: items, Meta: meta}, nil
		}
	}

	// ティア4: 広域スキャン（フィルタなし収集）+ 緩和マッチ
	broad, broadErr := scan.run(ctx, nil, o.cfg.BroadScanCap, true)
	if broadErr != nil {
		var authErr *portal.AuthError
		if errors.As(broadErr, &authErr) {
			return nil, broadErr
		}
	}
	if items := FilterRelaxed(broad, tokens, limit); len(items) > 0 {
		o.metrics.RecordSearchTier("broad_relaxed")
		meta.Provisional = true
		return &model.SearchResult{Items: items, Meta: meta}, nil
	}

	// 全ティア空振り。キャッシュが皆無でスキャンも失敗していた場合のみ
	// アダプタのエラーを表面化する。
	o.metrics.RecordSearchTier("miss")
	if !snap.Exists {
		if err != nil {
			return nil, err
		}
		if broadErr != nil {
			return nil, broadErr
		}
	}

	return &model.SearchResult{Items: []model.CourseItem{}, Meta: meta}, nil
}

// liveScan は1回のSearch呼び出し内で共有されるライブスキャン状態。
// ログインとプランポイント列挙は初回のみ行い、ティア4で再利用する。
type liveScan struct {
	o        *Orchestrator
	username string
	password string

	session *portal.Session
	refs    []model.PlanPointRef
}

// run は時間制限付きライブスキャンを1回実行する。
// broadが偽の場合は厳格マッチで絞り込みながら最大maxItems件を収集し、
// 真の場合はフィルタなしで最大maxItems件を収集する。
// バジェット判定はアダプタ呼び出しの合間に行う。
func (s *liveScan) run(ctx context.Context, tokens []string, maxItems int, broad bool) ([]model.CourseItem, error) {
	o := s.o
	start := time.Now()
	defer func() {
		o.metrics.RecordScanLatency(time.Since(start))
	}()

	scanCtx, cancel := context.WithTimeout(ctx, o.cfg.ScanBudget)
	defer cancel()

	if s.session == nil {
		session, err := o.adapter.Login(scanCtx, s.username, s.password)
		if err != nil {
			o.logger.Warn("ライブスキャンのログインに失敗しました",
				slog.String("account", s.username),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		s.session = session
	}

	if s.refs == nil {
		refs, err := o.adapter.ListPlanPoints(scanCtx, s.session)
		if err != nil {
			o.logger.Warn("ライブスキャンのプランポイント列挙に失敗しました",
				slog.String("account", s.username),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		s.refs = refs
	}

	targets := o.prioritize(s.refs, tokens, broad)
	deadline := start.Add(o.cfg.ScanBudget)

	var items []model.CourseItem
	for _, ref := range targets {
		if time.Now().After(deadline) {
			break
		}
		if maxItems > 0 && len(items) >= maxItems {
			break
		}

		raws, err := o.adapter.FetchCourses(scanCtx, s.session, ref)
		if err != nil {
			// 一時的な取得失敗はこのプランポイントをスキップして継続する
			o.logger.Warn("ライブスキャン中の取得に失敗したためスキップします",
				slog.String("account", s.username),
				slog.String("plan_point_id", ref.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, raw := range raws {
			item := portal.Normalize(o.dialect, ref.ID, raw)
			if !broad && !MatchStrict(item, tokens) {
				continue
			}
			items = append(items, item)
			if maxItems > 0 && len(items) >= maxItems {
				break
			}
		}
	}

	return items, nil
}

// prioritize はスキャン対象のプランポイントを選定する。
// いずれかのトークンがプランポイント名にマッチする場合はそれらを先頭に並べて
// 上限ScanPlanPointsHint、マッチなしの場合は列挙順の先頭ScanPlanPointsBase件。
// 広域スキャンは常に列挙順の先頭ScanPlanPointsHint件。
func (o *Orchestrator) prioritize(refs []model.PlanPointRef, tokens []string, broad bool) []model.PlanPointRef {
	if broad || len(tokens) == 0 {
		return headRefs(refs, o.cfg.ScanPlanPointsHint)
	}

	var hits, rest []model.PlanPointRef
	for _, ref := range refs {
		if textutil.ContainsAny(textutil.Fold(ref.Name), tokens) {
			hits = append(hits, ref)
		} else {
			rest = append(rest, ref)
		}
	}

	if len(hits) == 0 {
		return headRefs(refs, o.cfg.ScanPlanPointsBase)
	}

	return headRefs(append(hits, rest...), o.cfg.ScanPlanPointsHint)
}

// headRefs はrefsの先頭最大n件を返す。
func headRefs(refs []model.PlanPointRef, n int) []model.PlanPointRef {
	if len(refs) <= n {
		return refs
	}
	return refs[:n]
}
