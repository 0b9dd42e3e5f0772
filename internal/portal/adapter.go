// Package portal は大学の履修登録ポータルへのアクセスを提供する。
// ログイン、学習プランの列挙、コース一覧の取得、登録フォームの送信を含む。
package portal

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/regman/internal/model"
)

// Session はログイン済みポータルセッションを表す不透明なハンドル。
// クッキージャーを保持するHTTPクライアントと、ログイン後の
// リダイレクトから導出したベースURLを束ねる。
// 認証情報そのものは保持しない。
type Session struct {
	base   string
	client *http.Client
}

// RawCourseRecord はコース一覧テーブルの1行から抽出した生の文字列群を表す。
// 正規化前のDOM由来テキストであり、Normalizeでmodel.CourseItemに変換される。
type RawCourseRecord struct {
	CourseID      string // コース番号（.ver_id セル）
	Title         string // コース名（タイトルセル）
	LecturerText  string // 担当者欄の生テキスト（カンマ・セミコロン区切り）
	Semester      string // 学期ラベル（例: "WiSe 2025"）
	Status        string // 登録状態欄のテキスト
	CapacityText  string // "空き / 定員" 形式のセルテキスト
	WaitlistText  string // ウェイティングリスト欄のテキスト（人数を含む）
	WaitlistTitle string // ウェイティングリスト欄のtitle属性（ラベル）
	WindowText    string // 登録期間のテキスト（"ab <日時>" / "bis <日時>"）
	RegisteredAt  string // 登録済みの場合の登録日時テキスト
	FormName      string // 行内の送信フォーム名（存在する場合）
}

// FormRef はページ上のフォーム1つへの参照を表す。
// Valuesには hidden を含む全コントロールの現在値が入る。
type FormRef struct {
	Name   string
	Action string
	Values url.Values
}

// ResultPage はフォーム送信後の応答ページを表す。
// Textはタグ除去済みの全文テキスト、Formsはページ上の全フォーム。
type ResultPage struct {
	URL   string
	Text  string
	Forms []FormRef
}

// CourseRow はコース一覧上の特定の1行と、その行の送信フォームを表す。
type CourseRow struct {
	PlanPointID string
	CourseID    string
	Status      string
	Form        FormRef
	// HasForm は行内に送信フォームが存在したかどうか。
	HasForm bool
}

// Adapter はポータルとの通信操作のインターフェース。
// 全操作はブロッキングであり、contextによるタイムアウトを受け付ける。
type Adapter interface {
	// Login は認証を行い、ログイン済みセッションを返す。
	// 認証失敗時は*AuthErrorを返す。
	Login(ctx context.Context, username, password string) (*Session, error)

	// ListPlanPoints は学習プラン上の全プランポイントを列挙順で返す。
	// 期待するページ構造が見つからない場合は*NavigationErrorを返す。
	ListPlanPoints(ctx context.Context, s *Session) ([]model.PlanPointRef, error)

	// FetchCourses はプランポイント配下のコース一覧を行順で返す。
	// コース一覧を持たないプランポイントに対しては空スライスを返す。
	FetchCourses(ctx context.Context, s *Session, ref model.PlanPointRef) ([]RawCourseRecord, error)

	// LocateCourseRow は指定プランポイントのコース一覧から対象コースの行を特定する。
	// 見つからない場合は*NotFoundErrorを返す。
	LocateCourseRow(ctx context.Context, s *Session, planPointID, courseID string) (*CourseRow, error)

	// Submit は行の登録フォームを送信し、応答ページを返す。
	// optsのグループ選択・ウェイティングリスト参加は、対応するコントロールが
	// フォームに存在する場合のみ設定される（ベストエフォート）。
	Submit(ctx context.Context, s *Session, row *CourseRow, opts model.EnrollOptions) (*ResultPage, error)

	// SubmitForm は応答ページ上のフォーム（確認フォームなど）をそのまま送信する。
	// FormRef.Actionはパース時に絶対URLへ解決済みであることを前提とする。
	SubmitForm(ctx context.Context, s *Session, form FormRef) (*ResultPage, error)
}
