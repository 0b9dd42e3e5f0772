// Package textutil はダイアクリティカルマーク除去と小文字化による
// 照合用テキスト正規化を提供する。検索マッチングと
// 登録結果ページのマーカー判定の両方で同じ正規化を使用する。
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer はNFD分解後に結合文字（Mnカテゴリ）を除去し、NFCへ再合成する。
// これにより ä→a、é→e のようにベースアルファベットへ畳み込まれる。
var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold は照合用にテキストを正規化する。
// 小文字化、ß→ssの置換（ポータルのダイアレクトがドイツ語のため）、
// ダイアクリティカルマークの除去を行う。
// 変換に失敗した場合は小文字化のみのテキストを返す。
func Fold(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ß", "ss")

	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return folded
}

// Tokenize はクエリを空白で分割し、各トークンをFoldで正規化して返す。
// 空のクエリには空スライスを返す。
func Tokenize(q string) []string {
	fields := strings.Fields(q)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Fold(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// ContainsAll はhaystack（正規化済み）が全トークンを含むかを返す。
func ContainsAll(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// ContainsAny はhaystack（正規化済み）がいずれかのトークンを含むかを返す。
// トークンが空の場合はfalseを返す。
func ContainsAny(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}
