package search

import (
	"testing"

	"github.com/hitoshi/regman/internal/model"
)

func courseFixture() []model.CourseItem {
	return []model.CourseItem{
		{PlanPointID: "100", CourseID: "0001", Title: "Einführung in die Statistik", Lecturers: []string{"Müller"}},
		{PlanPointID: "100", CourseID: "0002", Title: "Statistik Vertiefung", Lecturers: []string{"Schmidt"}},
		{PlanPointID: "200", CourseID: "0003", Title: "Lineare Algebra", Lecturers: []string{"Müller"}},
	}
}

func TestMatchStrict(t *testing.T) {
	item := model.CourseItem{
		CourseID:  "0001",
		Title:     "Einführung in die Statistik",
		Lecturers: []string{"Müller", "Schmidt"},
	}

	// 全トークンがタイトル・担当者・コース番号のいずれかに含まれればマッチ（AND）
	if !MatchStrict(item, []string{"statistik", "muller"}) {
		t.Errorf("MatchStrict = false, want true for tokens across fields")
	}
	if !MatchStrict(item, []string{"0001"}) {
		t.Errorf("MatchStrict = false, want true for course ID token")
	}
	if MatchStrict(item, []string{"statistik", "physik"}) {
		t.Errorf("MatchStrict = true, want false when one token misses")
	}
}

func TestMatchRelaxed(t *testing.T) {
	item := model.CourseItem{Title: "Einführung in die Statistik"}

	if !MatchRelaxed(item, []string{"physik", "statistik"}) {
		t.Errorf("MatchRelaxed = false, want true when any token matches")
	}
	if MatchRelaxed(item, []string{"physik", "chemie"}) {
		t.Errorf("MatchRelaxed = true, want false when no token matches")
	}
}

func TestFilterStrict_PreservesOrderAndLimit(t *testing.T) {
	items := courseFixture()

	got := FilterStrict(items, []string{"statistik"}, 0)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].CourseID != "0001" || got[1].CourseID != "0002" {
		t.Errorf("order = [%s %s], want [0001 0002]", got[0].CourseID, got[1].CourseID)
	}

	limited := FilterStrict(items, []string{"statistik"}, 1)
	if len(limited) != 1 {
		t.Fatalf("len = %d, want 1 with limit", len(limited))
	}
	if limited[0].CourseID != "0001" {
		t.Errorf("limited[0].CourseID = %q, want %q", limited[0].CourseID, "0001")
	}
}

func TestFilterRelaxed_WidensMatch(t *testing.T) {
	items := courseFixture()

	// 厳格マッチでは両トークンを含む項目がない
	if got := FilterStrict(items, []string{"statistik", "algebra"}, 0); len(got) != 0 {
		t.Fatalf("FilterStrict len = %d, want 0", len(got))
	}

	// 緩和マッチはいずれかのトークンで拾う
	got := FilterRelaxed(items, []string{"statistik", "algebra"}, 0)
	if len(got) != 3 {
		t.Errorf("FilterRelaxed len = %d, want 3", len(got))
	}
}
