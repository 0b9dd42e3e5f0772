package portal

// Dialect はポータル実装ごとに異なるマークアップ上の目印をまとめた設定。
// セレクタやフォーム名をコードから分離し、別ダイアレクトのポータルにも
// 設定差し替えで対応できるようにする。
type Dialect struct {
	// ログインページ
	LoginFormName     string // ログインフォームのname属性
	UsernameAccessKey string // ユーザー名入力のaccesskey属性値
	PasswordAccessKey string // パスワード入力のaccesskey属性値

	// 学習プラン概要ページ
	StudyPlanFormName  string // 学習プランフォームのname属性
	PlanSelectControl  string // 学習プラン選択セレクトのname属性
	OverviewLinkHint   string // 概要ページへの遷移リンクhrefに含まれる目印
	DataTableSelector  string // プランポイント/コース一覧テーブルのセレクタ
	CourseListLinkHint string // コース一覧リンクhrefに含まれる目印

	// コース一覧テーブルの行内セレクタ
	CourseIDSelector   string // コース番号リンク
	SemesterSelector   string // 学期ラベル
	TitleCellSelector  string // タイトルセル
	TitleSelector      string // タイトルセル内の優先要素
	LecturerSelector   string // 担当者欄
	StatusSelector     string // 登録状態欄
	CapacitySelector   string // 定員欄
	WaitlistSelector   string // ウェイティングリスト欄
	ActionFormSelector string // 行内の送信フォーム
	WindowSelector     string // 登録期間のタイムスタンプ
	RegisteredSelector string // 登録済みタイムスタンプ

	// フォームコントロールの目印（name属性の部分一致、小文字比較）
	GroupControlHint    string   // グループ選択コントロール
	WaitlistControlHint string   // ウェイティングリスト参加コントロール
	ConfirmFormHints    []string // 確認フォーム名の候補

	// 登録期間テキストの接頭辞
	WindowFromPrefix  string // 開始（例: "ab "）
	WindowUntilPrefix string // 終了（例: "bis "）
}

// DefaultDialect は既定のポータルダイアレクトを返す。
// セレクタは対象ポータルのテーブルマークアップ（b3k-data系）に合わせてある。
func DefaultDialect() Dialect {
	return Dialect{
		LoginFormName:     "login",
		UsernameAccessKey: "u",
		PasswordAccessKey: "p",

		StudyPlanFormName:  "ea_stupl",
		PlanSelectControl:  "ASPP",
		OverviewLinkHint:   "stupl",
		DataTableSelector:  "table.b3k-data",
		CourseListLinkHint: "DLVO",

		CourseIDSelector:   ".ver_id a",
		SemesterSelector:   ".ver_id span",
		TitleCellSelector:  "td.ver_title",
		TitleSelector:      "a, strong, span",
		LecturerSelector:   ".ver_title div",
		StatusSelector:     "td.box div",
		CapacitySelector:   `div[class*="capacity_entry"]`,
		WaitlistSelector:   `td.capacity div[title*="Warteliste"]`,
		ActionFormSelector: "td.action form",
		WindowSelector:     "td.action .timestamp span",
		RegisteredSelector: "td.box.active .timestamp span",

		GroupControlHint:    "gruppe",
		WaitlistControlHint: "warteliste",
		ConfirmFormHints:    []string{"confirm", "bestaetigen", "anmelden"},

		WindowFromPrefix:  "ab ",
		WindowUntilPrefix: "bis ",
	}
}
