// Package security はアプリケーションのセキュリティ機能を提供する。
//
// SnippetSanitizerService はポータルの応答ページから診断用スニペットを
// 生成する際に、HTMLタグを全て除去してプレーンテキスト化する。
// ポータルのマークアップをそのままAPIレスポンスに載せると、
// 呼び出し側UIでのXSSリスクになるため、bluemondayのStrictPolicyを使用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SnippetSanitizerService は診断用スニペット生成のインターフェースを定義する。
type SnippetSanitizerService interface {
	// Snippet はHTMLまたはテキストからタグを除去し、空白を正規化した上で
	// maxLenバイト以内に切り詰めたスニペットを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Snippet(raw string, maxLen int) string
}

// snippetSanitizer はSnippetSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type snippetSanitizer struct {
	policy *bluemonday.Policy
}

// NewSnippetSanitizer はSnippetSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグ・属性を除去し、テキストノードのみを残す。
func NewSnippetSanitizer() *snippetSanitizer {
	return &snippetSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Snippet はHTMLからタグを除去したスニペットを返す。
func (s *snippetSanitizer) Snippet(raw string, maxLen int) string {
	if raw == "" {
		return ""
	}

	text := s.policy.Sanitize(raw)
	text = strings.Join(strings.Fields(text), " ")

	if maxLen > 0 && len(text) > maxLen {
		// UTF-8の途中で切らないよう、境界までバイトを戻す
		cut := maxLen
		for cut > 0 && (text[cut]&0xC0) == 0x80 {
			cut--
		}
		text = text[:cut]
	}

	return text
}
