package portal

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/regman/internal/model"
)

// cleanText は空白（改行・タブ・連続スペース）を1個のスペースに畳み込み、前後をトリムする。
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveRef は相対URLをベースURLを基準に絶対URLへ解決する。
func resolveRef(base *url.URL, rawRef string) string {
	if base == nil {
		return rawRef
	}
	ref, err := url.Parse(strings.TrimSpace(rawRef))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// parseFormRef はform要素からFormRefを構築する。
// hidden・text等のinputの現在値と、selectの選択中オプション
// （未選択の場合は先頭オプション）を収集する。
// 未チェックのcheckbox/radioは送信対象に含めない。
// actionはpageURLを基準に絶対URLへ解決される。
func parseFormRef(sel *goquery.Selection, pageURL *url.URL) FormRef {
	form := FormRef{
		Name:   sel.AttrOr("name", ""),
		Values: url.Values{},
	}
	form.Action = resolveRef(pageURL, sel.AttrOr("action", ""))

	sel.Find("input").Each(func(_ int, in *goquery.Selection) {
		name, ok := in.Attr("name")
		if !ok || name == "" {
			return
		}
		typ := strings.ToLower(in.AttrOr("type", "text"))
		switch typ {
		case "checkbox", "radio":
			if _, checked := in.Attr("checked"); !checked {
				return
			}
		}
		form.Values.Set(name, in.AttrOr("value", ""))
	})

	sel.Find("select").Each(func(_ int, se *goquery.Selection) {
		name, ok := se.Attr("name")
		if !ok || name == "" {
			return
		}
		opt := se.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = se.Find("option").First()
		}
		if opt.Length() > 0 {
			form.Values.Set(name, opt.AttrOr("value", cleanText(opt.Text())))
		}
	})

	return form
}

// parseResultPage は応答ドキュメントをResultPageに変換する。
// Textはタグ除去・空白正規化済みの全文、Formsは全フォーム（action解決済み）。
func parseResultPage(doc *goquery.Document, pageURL *url.URL) *ResultPage {
	page := &ResultPage{Text: cleanText(doc.Text())}
	if pageURL != nil {
		page.URL = pageURL.String()
	}
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		page.Forms = append(page.Forms, parseFormRef(sel, pageURL))
	})
	return page
}

// depthPattern はstyle属性からインデント幅（px）を取り出すための正規表現。
var depthPattern = regexp.MustCompile(`\d+`)

// indentUnitPx はプランポイント階層1段あたりのインデント幅。
const indentUnitPx = 16

// parsePlanRows は学習プラン概要テーブルからプランポイントの一覧を列挙順で抽出する。
// ListURLはセッションのベースURL基準の相対パスのまま保持する。
func parsePlanRows(doc *goquery.Document, d Dialect) []model.PlanPointRef {
	var refs []model.PlanPointRef

	doc.Find(d.DataTableSelector + " tbody tr").Each(func(i int, row *goquery.Selection) {
		// 2列目が空の行は区切り行とみなしてスキップする
		if cleanText(row.Find("td:nth-of-type(2)").Text()) == "" {
			return
		}

		anchor := row.Find("a[id]").First()
		id, ok := anchor.Attr("id")
		if !ok || len(id) < 2 {
			return
		}

		ref := model.PlanPointRef{
			// アンカーidの先頭1文字はマーカー接頭辞（例: "S12345" -> "12345"）
			ID:    id[1:],
			Order: i + 1,
			Name:  cleanText(row.Find("td:nth-of-type(1) span:nth-of-type(2)").Text()),
		}

		if style, ok := row.Find("td:nth-of-type(1)").Attr("style"); ok {
			if m := depthPattern.FindString(style); m != "" {
				px := 0
				for _, ch := range m {
					px = px*10 + int(ch-'0')
				}
				ref.Depth = px / indentUnitPx
			}
		}

		if href, ok := row.Find(`a[href*="` + d.CourseListLinkHint + `"]`).Attr("href"); ok {
			ref.ListURL = strings.TrimSpace(href)
		}

		refs = append(refs, ref)
	})

	return refs
}

// parseCourseRows はコース一覧テーブルからRawCourseRecordを行順で抽出する。
func parseCourseRows(doc *goquery.Document, d Dialect) []RawCourseRecord {
	var records []RawCourseRecord

	doc.Find(d.DataTableSelector + " tbody tr").Each(func(_ int, row *goquery.Selection) {
		courseID := cleanText(row.Find(d.CourseIDSelector).First().Text())
		if courseID == "" {
			return
		}

		rec := RawCourseRecord{
			CourseID:     courseID,
			Semester:     cleanText(row.Find(d.SemesterSelector).First().Text()),
			LecturerText: cleanText(row.Find(d.LecturerSelector).First().Text()),
			Status:       cleanText(row.Find(d.StatusSelector).First().Text()),
			CapacityText: cleanText(row.Find(d.CapacitySelector).First().Text()),
			WindowText:   cleanText(row.Find(d.WindowSelector).First().Text()),
			RegisteredAt: cleanText(row.Find(d.RegisteredSelector).First().Text()),
		}

		rec.Title = extractTitle(row, d, rec.LecturerText)

		wl := row.Find(d.WaitlistSelector).First()
		if wl.Length() > 0 {
			rec.WaitlistTitle = cleanText(wl.AttrOr("title", ""))
			span := wl.Find("span").First()
			if span.Length() > 0 {
				rec.WaitlistText = cleanText(span.Text())
			} else {
				rec.WaitlistText = cleanText(wl.Text())
			}
		}

		if name, ok := row.Find(d.ActionFormSelector).First().Attr("name"); ok {
			rec.FormName = name
		}

		records = append(records, rec)
	})

	return records
}

// extractTitle はタイトルセルからコース名を抽出する。
// 明確なタイトル要素を優先し、なければセル全文から担当者テキストを取り除く。
func extractTitle(row *goquery.Selection, d Dialect, lecturerText string) string {
	cell := row.Find(d.TitleCellSelector).First()
	if cell.Length() == 0 {
		return ""
	}

	title := ""
	if el := cell.Find(d.TitleSelector).First(); el.Length() > 0 {
		title = cleanText(el.Text())
	} else {
		title = cleanText(cell.Text())
	}

	// 同一セル内に担当者テキストが混入している場合は末尾から除去する
	if lecturerText != "" && strings.HasSuffix(title, lecturerText) {
		title = strings.TrimSuffix(title, lecturerText)
		title = strings.Trim(title, " -·• ")
	}

	return cleanText(title)
}
