// Package enroll は履修登録試行のステートマシンと結果分類を提供する。
package enroll

import (
	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/textutil"
)

// Marker は結果分類1件分のマーカー定義。
// Phrasesのいずれかがページ全文（正規化済み）に含まれる場合にOutcomeと判定する。
type Marker struct {
	Outcome model.EnrollOutcome
	Phrases []string
}

// MarkerTable はポータルダイアレクトごとの判定フレーズ集。
// 判定ロジックにフレーズを直接埋め込まず、設定として差し替えられるようにする。
type MarkerTable struct {
	// Terminal は終端結果のマーカー。優先順に評価される
	// （success > waitlist > already_enrolled > closed）。
	Terminal []Marker
	// Confirm は確認ページを示すフレーズ。
	Confirm []string
	// ClosedStatus は送信前のステータス欄で「登録不可」を示すフレーズ。
	ClosedStatus []string
}

// GermanMarkers は対象ポータル（ドイツ語ダイアレクト）の既定マーカー集を返す。
func GermanMarkers() MarkerTable {
	return MarkerTable{
		Terminal: []Marker{
			{
				Outcome: model.EnrollOutcomeSuccess,
				Phrases: []string{
					"anmeldung wurde durchgefuhrt",
					"erfolgreich angemeldet",
					"sie sind angemeldet",
				},
			},
			{
				Outcome: model.EnrollOutcomeWaitlist,
				Phrases: []string{
					"auf die warteliste",
					"warteliste aufgenommen",
					"wartelistenplatz",
				},
			},
			{
				Outcome: model.EnrollOutcomeAlreadyEnrolled,
				Phrases: []string{
					"bereits angemeldet",
					"bereits zu dieser veranstaltung angemeldet",
				},
			},
			{
				Outcome: model.EnrollOutcomeClosed,
				Phrases: []string{
					"anmeldung nicht moglich",
					"anmeldefrist abgelaufen",
					"frist ist abgelaufen",
					"keine freien platze",
					"anmeldung geschlossen",
				},
			},
		},
		Confirm: []string{
			"wirklich anmelden",
			"anmeldung bestatigen",
			"bestatigen sie",
		},
		ClosedStatus: []string{
			"abgelaufen",
			"geschlossen",
			"keine anmeldung",
			"nicht moglich",
		},
	}
}

// Classify はページ全文を終端マーカーと照合し、結果を返す。
// マーカーが1つも一致しない場合はunknown。
// 照合はFoldによる正規化（小文字化・ダイアクリティカル除去）後に行うため、
// マーカー側のフレーズもベースアルファベットで定義する。
func (t MarkerTable) Classify(pageText string) model.EnrollOutcome {
	folded := textutil.Fold(pageText)
	for _, m := range t.Terminal {
		if textutil.ContainsAny(folded, m.Phrases) {
			return m.Outcome
		}
	}
	return model.EnrollOutcomeUnknown
}

// NeedsConfirmation はページが確認ステップを要求しているかを返す。
func (t MarkerTable) NeedsConfirmation(pageText string) bool {
	return textutil.ContainsAny(textutil.Fold(pageText), t.Confirm)
}

// StatusClosed は送信前のステータス欄テキストが「登録不可」を示すかを返す。
// ポータルが既に不可を明示している場合の無駄な送信を避けるために使う。
func (t MarkerTable) StatusClosed(status string) bool {
	if status == "" {
		return false
	}
	return textutil.ContainsAny(textutil.Fold(status), t.ClosedStatus)
}
