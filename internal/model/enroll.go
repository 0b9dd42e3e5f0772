// Package model はドメインモデルを定義する。
package model

// EnrollOutcome は履修登録試行の終端結果を表す。
type EnrollOutcome string

const (
	// EnrollOutcomeSuccess は登録成功。
	EnrollOutcomeSuccess EnrollOutcome = "success"
	// EnrollOutcomeWaitlist はウェイティングリストへの登録。
	EnrollOutcomeWaitlist EnrollOutcome = "waitlist"
	// EnrollOutcomeAlreadyEnrolled は既に登録済み。
	EnrollOutcomeAlreadyEnrolled EnrollOutcome = "already_enrolled"
	// EnrollOutcomeClosed は登録不可（締切・満席など）。
	EnrollOutcomeClosed EnrollOutcome = "closed"
	// EnrollOutcomeUnknown はマーカー不一致により判定不能。
	// ポータル側の変更検知のため、デバッグ用スニペットを添付して返す。
	EnrollOutcomeUnknown EnrollOutcome = "unknown"
)

// EnrollOptions は登録フォーム送信時のオプション。
// 対応するコントロールがフォームに存在しない場合は無視される（ベストエフォート）。
type EnrollOptions struct {
	// Group はグループ選択コントロールに設定する値。
	Group string
	// JoinWaitlist はウェイティングリスト参加コントロールを有効化するかどうか。
	JoinWaitlist bool
}

// EnrollResult は履修登録試行1回の結果。
type EnrollResult struct {
	Outcome EnrollOutcome `json:"result"`
	Message string        `json:"message"`
	// DebugSnippet はOutcomeがunknownの場合のみ設定される、
	// サニタイズ済み・長さ制限付きのページテキスト断片。
	DebugSnippet string `json:"debug_snippet,omitempty"`
	// FormNames はunknown判定時に最終ページで観測されたフォーム名の一覧。
	FormNames []string `json:"form_names,omitempty"`
}
