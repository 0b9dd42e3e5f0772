// Package index はアカウントごとのコースインデックスキャッシュと
// バックグラウンド再構築を提供する。
package index

import (
	"sync"
	"time"

	"github.com/hitoshi/regman/internal/model"
)

// maxErrorLen はエントリに記録するエラーメッセージの最大長。
const maxErrorLen = 300

// Snapshot は読み取り側に渡すエントリの不変コピー。
// Itemsは複製であり、保持中のエントリが書き換えられても影響を受けない。
type Snapshot struct {
	Exists          bool
	Items           []model.CourseItem
	UpdatedAt       time.Time
	Building        bool
	LastError       string
	BuildStartedAt  time.Time
	BuildFinishedAt time.Time
}

// entry はアカウント1件分のキャッシュ実体。Storeのロック下でのみ触る。
type entry struct {
	items           []model.CourseItem
	updatedAt       time.Time
	building        bool
	lastError       string
	buildStartedAt  time.Time
	buildFinishedAt time.Time
	// done は進行中ビルドの完了通知チャネル。
	// ビルド完了時（成功・失敗とも）にcloseされ、テストが決定的に待機できる。
	done chan struct{}
}

// Store はアカウントをキーとするインデックスキャッシュ。
// コンストラクタ注入で共有され、パッケージレベルのシングルトンは持たない。
// エントリはプロセス生存中は破棄されない（アカウント数は有効ユーザー数で抑えられる前提）。
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration

	// now はテストで差し替えるための現在時刻取得関数。
	now func() time.Time
}

// NewStore はStoreの新しいインスタンスを生成する。
// ttlが0以下の場合はデフォルト値600秒を使用する。
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// get はアカウントのエントリを返す。初回アクセス時に空エントリを作成する。
// 呼び出し側がs.muを保持していること。
func (s *Store) get(account string) *entry {
	e, ok := s.entries[account]
	if !ok {
		e = &entry{}
		s.entries[account] = e
	}
	return e
}

// Snapshot はアカウントの現在のキャッシュ状態の不変コピーを返す。
func (s *Store) Snapshot(account string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[account]
	if !ok {
		return Snapshot{}
	}

	items := make([]model.CourseItem, len(e.items))
	copy(items, e.items)

	return Snapshot{
		Exists:          !e.updatedAt.IsZero(),
		Items:           items,
		UpdatedAt:       e.updatedAt,
		Building:        e.building,
		LastError:       e.lastError,
		BuildStartedAt:  e.buildStartedAt,
		BuildFinishedAt: e.buildFinishedAt,
	}
}

// Fresh はアカウントのキャッシュがTTL内かどうかを返す。
// 未構築（updatedAtゼロ値）は常に陳腐化扱い。
func (s *Store) Fresh(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[account]
	if !ok || e.updatedAt.IsZero() {
		return false
	}
	return s.now().Sub(e.updatedAt) < s.ttl
}

// TryBeginBuild はビルド開始を試みる。
// 既にビルド中の場合はfalseを返す（アカウントごとに同時ビルドは最大1つ）。
// 成功時はbuildingフラグを立て、完了待機用チャネルを返す。
func (s *Store) TryBeginBuild(account string) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(account)
	if e.building {
		return nil, false
	}

	e.building = true
	e.buildStartedAt = s.now()
	e.done = make(chan struct{})
	return e.done, true
}

// CompleteBuild はビルド成功（部分結果を含む）を反映する。
// itemsを差し替え、updatedAtを現在時刻にし、lastErrorをクリアする。
func (s *Store) CompleteBuild(account string, items []model.CourseItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(account)
	e.items = items
	e.updatedAt = s.now()
	e.lastError = ""
	s.finishLocked(e)
}

// FailBuild はビルド失敗を反映する。
// 直前のitems/updatedAtには触れず、lastErrorのみを長さ制限付きで記録する。
// 不安定な再構築が正常なキャッシュを消してしまわないための規律。
func (s *Store) FailBuild(account string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(account)
	msg := err.Error()
	if len(msg) > maxErrorLen {
		// UTF-8の途中で切らないよう、境界までバイトを戻す
		cut := maxErrorLen
		for cut > 0 && (msg[cut]&0xC0) == 0x80 {
			cut--
		}
		msg = msg[:cut]
	}
	e.lastError = msg
	s.finishLocked(e)
}

// finishLocked はビルド終了の共通処理。buildingの解除は成功・失敗の全経路で保証される。
func (s *Store) finishLocked(e *entry) {
	e.building = false
	e.buildFinishedAt = s.now()
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// AwaitBuild は進行中ビルドの完了待機用チャネルを返す。
// ビルドが進行中でない場合はclose済みチャネルを返し、即座に待機が解ける。
// バックグラウンドビルドをポーリングなしで待てるよう、主にテストから使用する。
func (s *Store) AwaitBuild(account string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[account]; ok && e.done != nil {
		return e.done
	}

	closed := make(chan struct{})
	close(closed)
	return closed
}

// Status はアカウントのインデックス状態を返す。
func (s *Store) Status(account string) model.IndexStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[account]
	if !ok {
		return model.IndexStatus{}
	}

	status := model.IndexStatus{
		Exists:    !e.updatedAt.IsZero(),
		Building:  e.building,
		ItemCount: len(e.items),
		LastError: e.lastError,
	}
	if !e.updatedAt.IsZero() {
		t := e.updatedAt
		status.UpdatedAt = &t
		status.Fresh = s.now().Sub(e.updatedAt) < s.ttl
	}
	return status
}
