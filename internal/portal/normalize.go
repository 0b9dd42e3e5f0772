package portal

import (
	"strconv"
	"strings"

	"github.com/hitoshi/regman/internal/model"
)

// Normalize はRawCourseRecordを正規化済みのmodel.CourseItemに変換する。
// 純粋関数であり、I/Oを行わない。
//   - 担当者欄はカンマ・セミコロンで分割し、空要素を除いたトリム済みリストにする
//   - "空き / 定員" セルは非負整数のペアにパースし、読めない場合はnil（不明）とする
//   - ウェイティングリスト欄からは人数とラベルを分離する
//   - 登録期間テキストの開始接頭辞が付く場合のみEnrollOpenAtを設定する
func Normalize(d Dialect, planPointID string, raw RawCourseRecord) model.CourseItem {
	item := model.CourseItem{
		PlanPointID: planPointID,
		CourseID:    cleanText(raw.CourseID),
		Title:       cleanText(raw.Title),
		Lecturers:   splitLecturers(raw.LecturerText),
		Semester:    cleanText(raw.Semester),
		Status:      cleanText(raw.Status),
	}

	item.FreeSeats, item.Capacity = parseCapacity(raw.CapacityText)

	item.WaitlistLabel = cleanText(raw.WaitlistTitle)
	item.WaitlistCount = parseLeadingInt(raw.WaitlistText)

	window := cleanText(raw.WindowText)
	if strings.HasPrefix(window, d.WindowFromPrefix) {
		item.EnrollOpenAt = strings.TrimSpace(strings.TrimPrefix(window, d.WindowFromPrefix))
	}

	return item
}

// splitLecturers は担当者欄の生テキストをトリム済みの名前リストに分割する。
func splitLecturers(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	})

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if name := cleanText(f); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseCapacity は "空き / 定員" 形式のテキストをパースする。
// 最後のスラッシュの左側が空き数、右側が定員。
// いずれかが読めない場合は該当側をnil（不明）とする。負数は不明扱い。
func parseCapacity(text string) (free, capacity *int) {
	text = cleanText(text)
	idx := strings.LastIndex(text, "/")
	if idx < 0 {
		return nil, nil
	}

	free = parseNonNegative(text[:idx])
	capacity = parseNonNegative(text[idx+1:])
	return free, capacity
}

// parseNonNegative はテキスト中の数字のみを取り出して非負整数としてパースする。
func parseNonNegative(s string) *int {
	digits := strings.Builder{}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return nil
	}

	n, err := strconv.Atoi(digits.String())
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// parseLeadingInt はテキストから最初の数値列を取り出す。見つからない場合は0。
func parseLeadingInt(s string) int {
	if n := parseNonNegative(s); n != nil {
		return *n
	}
	return 0
}
