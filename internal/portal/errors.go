package portal

import "fmt"

// AuthError はポータルへのログイン失敗を表す。
// 認証情報の誤り、またはログインフォームの喪失。自動リトライ対象外。
type AuthError struct {
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("portal auth failed: %s", e.Reason)
}

// NavigationError はログイン後に期待するページ構造へ到達できなかったことを表す。
// 現在の呼び出しに対してはfatalだが、次の独立した呼び出しでは再試行される。
type NavigationError struct {
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *NavigationError) Error() string {
	return fmt.Sprintf("portal navigation failed: %s", e.Reason)
}

// FetchError はページ取得の一時的な失敗（ネットワークエラー・タイムアウト）を表す。
// ビルダーは該当プランポイントをスキップして継続し、検索は次のティアへフォールバックする。
type FetchError struct {
	URL string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	return fmt.Sprintf("portal fetch failed: %s: %v", e.URL, e.Err)
}

// Unwrap はラップされたエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError は対象プランポイントまたはコース行が見つからなかったことを表す。
type NotFoundError struct {
	PlanPointID string
	CourseID    string
}

// Error はerrorインターフェースを実装する。
func (e *NotFoundError) Error() string {
	if e.CourseID == "" {
		return fmt.Sprintf("plan point not found: %s", e.PlanPointID)
	}
	return fmt.Sprintf("course row not found: pp=%s lv=%s", e.PlanPointID, e.CourseID)
}

// SubmitError は登録フォーム送信の失敗を表す。
// 二重登録リスクがあるため自動リトライは行わず、呼び出し側へそのまま伝播する。
type SubmitError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *SubmitError) Error() string {
	return fmt.Sprintf("portal submit failed: %v", e.Err)
}

// Unwrap はラップされたエラーを返す。
func (e *SubmitError) Unwrap() error {
	return e.Err
}
