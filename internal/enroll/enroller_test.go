package enroll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/portal"
)

// --- モック定義 ---

// mockAdapter はportal.Adapterのモック実装。
type mockAdapter struct {
	loginFn      func(ctx context.Context, username, password string) (*portal.Session, error)
	locateFn     func(ctx context.Context, s *portal.Session, planPointID, courseID string) (*portal.CourseRow, error)
	submitFn     func(ctx context.Context, s *portal.Session, row *portal.CourseRow, opts model.EnrollOptions) (*portal.ResultPage, error)
	submitFormFn func(ctx context.Context, s *portal.Session, form portal.FormRef) (*portal.ResultPage, error)

	submitCalls     int
	submitFormCalls int
}

func (m *mockAdapter) Login(ctx context.Context, username, password string) (*portal.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return &portal.Session{}, nil
}

func (m *mockAdapter) ListPlanPoints(ctx context.Context, s *portal.Session) ([]model.PlanPointRef, error) {
	return nil, nil
}

func (m *mockAdapter) FetchCourses(ctx context.Context, s *portal.Session, ref model.PlanPointRef) ([]portal.RawCourseRecord, error) {
	return nil, nil
}

func (m *mockAdapter) LocateCourseRow(ctx context.Context, s *portal.Session, planPointID, courseID string) (*portal.CourseRow, error) {
	if m.locateFn != nil {
		return m.locateFn(ctx, s, planPointID, courseID)
	}
	return &portal.CourseRow{PlanPointID: planPointID, CourseID: courseID, HasForm: true}, nil
}

func (m *mockAdapter) Submit(ctx context.Context, s *portal.Session, row *portal.CourseRow, opts model.EnrollOptions) (*portal.ResultPage, error) {
	m.submitCalls++
	if m.submitFn != nil {
		return m.submitFn(ctx, s, row, opts)
	}
	return &portal.ResultPage{}, nil
}

func (m *mockAdapter) SubmitForm(ctx context.Context, s *portal.Session, form portal.FormRef) (*portal.ResultPage, error) {
	m.submitFormCalls++
	if m.submitFormFn != nil {
		return m.submitFormFn(ctx, s, form)
	}
	return &portal.ResultPage{}, nil
}

// plainSanitizer はタグ除去を行わない素通しのSnippetSanitizer実装。
type plainSanitizer struct{}

func (plainSanitizer) Snippet(raw string, maxLen int) string {
	if maxLen > 0 && len(raw) > maxLen {
		return raw[:maxLen]
	}
	return raw
}

// recordingMetrics は終端結果の記録を検証するためのMetricsRecorder実装。
type recordingMetrics struct {
	outcomes []string
}

func (r *recordingMetrics) RecordEnrollOutcome(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func newTestEnroller(adapter portal.Adapter, metrics MetricsRecorder) *Enroller {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewEnroller(adapter, GermanMarkers(), []string{"confirm", "bestaetigen"}, plainSanitizer{}, logger, metrics)
}

// --- テスト ---

func TestEnroller_Enroll_Success(t *testing.T) {
	adapter := &mockAdapter{
		submitFn: func(ctx context.Context, s *portal.Session, row *portal.CourseRow, opts model.EnrollOptions) (*portal.ResultPage, error) {
			return &portal.ResultPage{Text: "Die Anmeldung wurde durchgeführt."}, nil
		},
	}
	metrics := &recordingMetrics{}

	e := newTestEnroller(adapter, metrics)

	result, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != model.EnrollOutcomeSuccess {
		t.Errorf("Outcome = %q, want %q", result.Outcome, model.EnrollOutcomeSuccess)
	}
	if result.DebugSnippet != "" {
		t.Errorf("DebugSnippet = %q, want empty for classified outcome", result.DebugSnippet)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "success" {
		t.Errorf("recorded outcomes = %v, want [success]", metrics.outcomes)
	}
}

func TestEnroller_Enroll_ClosedStatus_SkipsSubmit(t *testing.T) {
	adapter := &mockAdapter{
		locateFn: func(ctx context.Context, s *portal.Session, planPointID, courseID string) (*portal.CourseRow, error) {
			return &portal.CourseRow{
				PlanPointID: planPointID,
				CourseID:    courseID,
				Status:      "Anmeldefrist abgelaufen",
				HasForm:     true,
			}, nil
		},
	}

	e := newTestEnroller(adapter, nil)

	result, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != model.EnrollOutcomeClosed {
		t.Errorf("Outcome = %q, want %q", result.Outcome, model.EnrollOutcomeClosed)
	}
	// ステータスが既に不可を示す場合、フォームは送信しない
	if adapter.submitCalls != 0 {
		t.Errorf("submitCalls = %d, want 0", adapter.submitCalls)
	}
}

func TestEnroller_Enroll_NoForm_ReturnsSubmitError(t *testing.T) {
	adapter := &mockAdapter{
		locateFn: func(ctx context.Context, s *portal.Session, planPointID, courseID string) (*portal.CourseRow, error) {
			return &portal.CourseRow{PlanPointID: planPointID, CourseID: courseID, HasForm: false}, nil
		},
	}

	e := newTestEnroller(adapter, nil)

	// ステータスが不可を示していないのにフォームが無い行は、
	// closedと断定せず送信失敗として伝播する
	_, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
	var subErr *portal.SubmitError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *portal.SubmitError, got %v", err)
	}
	if adapter.submitCalls != 0 {
		t.Errorf("submitCalls = %d, want 0", adapter.submitCalls)
	}
}

func TestEnroller_Enroll_NoFormWithClosedStatus_ReturnsClosed(t *testing.T) {
	adapter := &mockAdapter{
		locateFn: func(ctx context.Context, s *portal.Session, planPointID, courseID string) (*portal.CourseRow, error) {
			return &portal.CourseRow{
				PlanPointID: planPointID,
				CourseID:    courseID,
				Status:      "Anmeldung nicht möglich",
				HasForm:     false,
			}, nil
		},
	}

	e := newTestEnroller(adapter, nil)

	result, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != model.EnrollOutcomeClosed {
		t.Errorf("Outcome = %q, want %q", result.Outcome, model.EnrollOutcomeClosed)
	}
	if adapter.submitCalls != 0 {
		t.Errorf("submitCalls = %d, want 0", adapter.submitCalls)
	}
}

func TestEnroller_Enroll_ConfirmationFlow(t *testing.T) {
	var confirmedForm portal.FormRef
	adapter := &mockAdapter{
		submitFn: func(ctx context.Context, s *portal.Session, row *portal.CourseRow, opts model.EnrollOptions) (*portal.ResultPage, error) {
			return &portal.ResultPage{
				Text: "Wollen Sie sich wirklich anmelden?",
				Forms: []portal.FormRef{
					{Name: "nav_menu"},
					{Name: "anmeldung_bestaetigen"},
				},
			}, nil
		},
		submitFormFn: func(ctx context.Context, s *portal.Session, form portal.FormRef) (*portal.ResultPage, error) {
			confirmedForm = form
			return &portal.ResultPage{Text: "Die Anmeldung wurde durchgeführt."}, nil
		},
	}

	e := newTestEnroller(adapter, nil)

	result, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != model.EnrollOutcomeSuccess {
		t.Errorf("Outcome = %q, want %q after confirmation", result.Outcome, model.EnrollOutcomeSuccess)
	}
	if adapter.submitFormCalls != 1 {
		t.Errorf("submitFormCalls = %d, want 1", adapter.submitFormCalls)
	}
	// ヒントに一致するフォームが選ばれる
	if confirmedForm.Name != "anmeldung_bestaetigen" {
		t.Errorf("confirmed form = %q, want %q", confirmedForm.Name, "anmeldung_bestaetigen")
	}
}

func TestEnroller_Enroll_Unknown_AttachesDiagnostics(t *testing.T) {
	adapter := &mockAdapter{
		submitFn: func(ctx context.Context, s *portal.Session, row *portal.CourseRow, opts model.EnrollOptions) (*portal.ResultPage, error) {
			return &portal.ResultPage{
				Text: "Unerwartete Antwort: " + strings.Repeat("x", 1000),
				Forms: []portal.FormRef{
					{Name: "seitenmenu"},
					{Name: ""},
				},
			}, nil
		},
	}
	metrics := &recordingMetrics{}

	e := newTestEnroller(adapter, metrics)

	result, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Outcome != model.EnrollOutcomeUnknown {
		t.Fatalf("Outcome = %q, want %q", result.Outcome, model.EnrollOutcomeUnknown)
	}
	if result.DebugSnippet == "" {
		t.Errorf("DebugSnippet is empty, want sanitized snippet")
	}
	if len(result.DebugSnippet) > defaultSnippetMaxLen {
		t.Errorf("len(DebugSnippet) = %d, want <= %d", len(result.DebugSnippet), defaultSnippetMaxLen)
	}
	if len(result.FormNames) != 2 || result.FormNames[1] != "(unnamed)" {
		t.Errorf("FormNames = %v, want 2 entries with (unnamed) placeholder", result.FormNames)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "unknown" {
		t.Errorf("recorded outcomes = %v, want [unknown]", metrics.outcomes)
	}
}

func TestEnroller_Enroll_PortalErrors_Propagate(t *testing.T) {
	t.Run("認証失敗", func(t *testing.T) {
		adapter := &mockAdapter{
			loginFn: func(ctx context.Context, username, password string) (*portal.Session, error) {
				return nil, &portal.AuthError{Reason: "invalid credentials"}
			},
		}
		e := newTestEnroller(adapter, nil)

		_, err := e.Enroll(context.Background(), "alice", "wrong", "100", "0001", model.EnrollOptions{})
		var authErr *portal.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected *portal.AuthError, got %v", err)
		}
	})

	t.Run("行が見つからない", func(t *testing.T) {
		adapter := &mockAdapter{
			locateFn: func(ctx context.Context, s *portal.Session, planPointID, courseID string) (*portal.CourseRow, error) {
				return nil, &portal.NotFoundError{PlanPointID: planPointID, CourseID: courseID}
			},
		}
		e := newTestEnroller(adapter, nil)

		_, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
		var nfErr *portal.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("expected *portal.NotFoundError, got %v", err)
		}
	})

	t.Run("送信失敗", func(t *testing.T) {
		adapter := &mockAdapter{
			submitFn: func(ctx context.Context, s *portal.Session, row *portal.CourseRow, opts model.EnrollOptions) (*portal.ResultPage, error) {
				return nil, &portal.SubmitError{Err: errors.New("connection reset")}
			},
		}
		e := newTestEnroller(adapter, nil)

		_, err := e.Enroll(context.Background(), "alice", "pw", "100", "0001", model.EnrollOptions{})
		var subErr *portal.SubmitError
		if !errors.As(err, &subErr) {
			t.Fatalf("expected *portal.SubmitError, got %v", err)
		}
	})
}
