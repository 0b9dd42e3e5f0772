// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, portal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodePortalAuth       = "PORTAL_AUTH_FAILED"
	ErrCodePortalNavigation = "PORTAL_NAVIGATION_FAILED"
	ErrCodePortalFetch      = "PORTAL_FETCH_FAILED"
	ErrCodeCourseNotFound   = "COURSE_NOT_FOUND"
	ErrCodeEnrollSubmit     = "ENROLL_SUBMIT_FAILED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewPortalAuthError はポータルログイン失敗エラーを生成する。
// 認証失敗はリトライしても解決しないため、即座に呼び出し側へ返す。
func NewPortalAuthError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePortalAuth,
		Message:  fmt.Sprintf("ポータルへのログインに失敗しました: %s", reason),
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewPortalNavigationError はログイン後のページ構造が見つからない場合のエラーを生成する。
func NewPortalNavigationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePortalNavigation,
		Message:  fmt.Sprintf("ポータルの画面構造を特定できませんでした: %s", reason),
		Category: "portal",
		Action:   "しばらく待ってから再度お試しください。改善しない場合はポータル側の変更の可能性があります。",
	}
}

// NewPortalFetchError はポータルからの取得失敗エラーを生成する。
func NewPortalFetchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePortalFetch,
		Message:  fmt.Sprintf("ポータルからのデータ取得に失敗しました: %s", reason),
		Category: "portal",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCourseNotFoundError は対象コースの行が見つからない場合のエラーを生成する。
func NewCourseNotFoundError(planPointID, courseID string) *APIError {
	return &APIError{
		Code:     ErrCodeCourseNotFound,
		Message:  fmt.Sprintf("指定されたコースが見つかりません: pp=%s lv=%s", planPointID, courseID),
		Category: "portal",
		Action:   "プランポイントIDとコースIDを確認してください。",
	}
}

// NewInternalError は予期しない内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEnrollSubmitError は登録フォーム送信失敗エラーを生成する。
// 二重登録リスクがあるため自動リトライは行わない。
func NewEnrollSubmitError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeEnrollSubmit,
		Message:  fmt.Sprintf("登録フォームの送信に失敗しました: %s", reason),
		Category: "portal",
		Action:   "ポータル上で登録状態を確認してから、必要であれば再度お試しください。",
	}
}
