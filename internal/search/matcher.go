// Package search はコースインデックスに対する段階的フォールバック検索を提供する。
// キャッシュ照合、時間制限付きライブスキャン、緩和マッチの各ティアを含む。
package search

import (
	"strings"

	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/textutil"
)

// haystack はマッチ対象テキスト（タイトル・担当者・コース番号の連結）を
// 正規化して返す。
func haystack(item model.CourseItem) string {
	parts := make([]string, 0, len(item.Lecturers)+2)
	parts = append(parts, item.Title)
	parts = append(parts, item.Lecturers...)
	parts = append(parts, item.CourseID)
	return textutil.Fold(strings.Join(parts, " "))
}

// MatchStrict は全トークンがマッチ対象に含まれる（AND）場合に真を返す。
func MatchStrict(item model.CourseItem, tokens []string) bool {
	return textutil.ContainsAll(haystack(item), tokens)
}

// MatchRelaxed はいずれかのトークンがマッチ対象に含まれる（OR）場合に真を返す。
// 最初の試行では使わず、ヒットゼロからの拡大フォールバック専用。
// 精密なクエリをノイズで溢れさせないための規律。
func MatchRelaxed(item model.CourseItem, tokens []string) bool {
	return textutil.ContainsAny(haystack(item), tokens)
}

// FilterStrict はitemsを厳格マッチで絞り込み、元の順序を保ったまま
// 最大limit件を返す。limitが0以下の場合は無制限。
func FilterStrict(items []model.CourseItem, tokens []string, limit int) []model.CourseItem {
	return filter(items, tokens, limit, MatchStrict)
}

// FilterRelaxed はitemsを緩和マッチで絞り込み、元の順序を保ったまま
// 最大limit件を返す。limitが0以下の場合は無制限。
func FilterRelaxed(items []model.CourseItem, tokens []string, limit int) []model.CourseItem {
	return filter(items, tokens, limit, MatchRelaxed)
}

// filter は共通の絞り込み処理。関連度による並べ替えは行わず、
// アダプタの列挙順（プランポイント順→行順）を維持する。
func filter(
	items []model.CourseItem,
	tokens []string,
	limit int,
	match func(model.CourseItem, []string) bool,
) []model.CourseItem {
	result := make([]model.CourseItem, 0, len(items))
	for _, item := range items {
		if !match(item, tokens) {
			continue
		}
		result = append(result, item)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}
