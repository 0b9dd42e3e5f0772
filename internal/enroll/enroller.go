package enroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/portal"
	"github.com/hitoshi/regman/internal/textutil"
)

// defaultSnippetMaxLen はunknown判定時に添付するスニペットの最大長。
const defaultSnippetMaxLen = 400

// SnippetSanitizer は診断用スニペット生成のインターフェース。
// security.SnippetSanitizerServiceを抽象化してテスタビリティを向上させる。
type SnippetSanitizer interface {
	Snippet(raw string, maxLen int) string
}

// MetricsRecorder は履修登録メトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordEnrollOutcome(outcome string)
}

// nopMetrics はメトリクス未設定時のダミー実装。
type nopMetrics struct{}

func (nopMetrics) RecordEnrollOutcome(string) {}

// Enroller は履修登録試行1回のステートマシンを駆動する。
//
//	行の特定 → (登録不可 | フォーム欠落 | 送信)
//	送信 → (確認待ち → 再分類) | 分類
//
// 登録はキャッシュを迂回して常にポータルのライブ状態を参照する。
// 二重登録リスクがあるため、いかなる失敗も自動リトライしない。
type Enroller struct {
	adapter       portal.Adapter
	markers       MarkerTable
	confirmHints  []string
	sanitizer     SnippetSanitizer
	logger        *slog.Logger
	metrics       MetricsRecorder
	snippetMaxLen int
}

// NewEnroller はEnrollerの新しいインスタンスを生成する。
// confirmHintsは確認フォーム名の候補（小文字部分一致）。
// metricsにnilを渡した場合は記録を行わない。
func NewEnroller(
	adapter portal.Adapter,
	markers MarkerTable,
	confirmHints []string,
	sanitizer SnippetSanitizer,
	logger *slog.Logger,
	metrics MetricsRecorder,
) *Enroller {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Enroller{
		adapter:       adapter,
		markers:       markers,
		confirmHints:  confirmHints,
		sanitizer:     sanitizer,
		logger:        logger,
		metrics:       metrics,
		snippetMaxLen: defaultSnippetMaxLen,
	}
}

// Enroll は指定コースへの登録を1回試行し、終端結果を返す。
// エラーを返すのはポータル操作そのものが失敗した場合
// （認証失敗・行の特定失敗・送信失敗）のみで、
// 登録が受け付けられなかったこと自体は結果（closed等）として返す。
func (e *Enroller) Enroll(
	ctx context.Context,
	username, password, planPointID, courseID string,
	opts model.EnrollOptions,
) (*model.EnrollResult, error) {
	attemptID := uuid.NewString()
	logger := e.logger.With(
		slog.String("attempt_id", attemptID),
		slog.String("account", username),
		slog.String("plan_point_id", planPointID),
		slog.String("course_id", courseID),
	)

	session, err := e.adapter.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	row, err := e.adapter.LocateCourseRow(ctx, session, planPointID, courseID)
	if err != nil {
		return nil, err
	}

	// 送信前のステータスが既に登録不可を示す場合は送信せずに終了する。
	// 不可を明示しているポータルへの無意味な送信を避ける。
	if e.markers.StatusClosed(row.Status) {
		logger.Info("送信前ステータスにより登録不可と判定しました",
			slog.String("status", row.Status),
		)
		e.metrics.RecordEnrollOutcome(string(model.EnrollOutcomeClosed))
		return &model.EnrollResult{
			Outcome: model.EnrollOutcomeClosed,
			Message: fmt.Sprintf("登録できません（ポータル表示: %s）", row.Status),
		}, nil
	}

	// ステータスが不可を示していないのに送信フォームが無い行はポータル側の異常。
	// 登録不可と断定せず、送信失敗として呼び出し側に伝える。
	if !row.HasForm {
		logger.Warn("行内に送信フォームが見つかりません",
			slog.String("status", row.Status),
		)
		return nil, &portal.SubmitError{
			Err: fmt.Errorf("no submission form in course row: pp=%s lv=%s", planPointID, courseID),
		}
	}

	page, err := e.adapter.Submit(ctx, session, row, opts)
	if err != nil {
		return nil, err
	}

	outcome := e.markers.Classify(page.Text)

	// 終端マーカーに一致せず確認ページのマーカーに一致する場合は、
	// 確認フォームを送信してから再分類する。
	if outcome == model.EnrollOutcomeUnknown && e.markers.NeedsConfirmation(page.Text) {
		confirm, ok := e.pickConfirmForm(page.Forms)
		if ok {
			logger.Info("確認フォームを送信します",
				slog.String("form_name", confirm.Name),
			)
			page, err = e.adapter.SubmitForm(ctx, session, confirm)
			if err != nil {
				return nil, err
			}
			outcome = e.markers.Classify(page.Text)
		}
	}

	result := &model.EnrollResult{
		Outcome: outcome,
		Message: outcomeMessage(outcome),
	}

	if outcome == model.EnrollOutcomeUnknown {
		// ポータル側の変更を人間が診断できるよう、
		// タグ除去済みのページ断片と観測したフォーム名を添付する
		result.DebugSnippet = e.sanitizer.Snippet(page.Text, e.snippetMaxLen)
		result.FormNames = formNames(page.Forms)
		logger.Warn("登録結果を分類できませんでした",
			slog.Any("form_names", result.FormNames),
		)
	} else {
		logger.Info("履修登録試行が完了しました",
			slog.String("outcome", string(outcome)),
		)
	}

	e.metrics.RecordEnrollOutcome(string(outcome))
	return result, nil
}

// pickConfirmForm は確認送信に使うフォームを選ぶ。
// 名前に確認候補ヒントを含むフォームを優先し、なければ先頭のフォームを使う（ベストエフォート）。
func (e *Enroller) pickConfirmForm(forms []portal.FormRef) (portal.FormRef, bool) {
	if len(forms) == 0 {
		return portal.FormRef{}, false
	}

	for _, f := range forms {
		name := textutil.Fold(f.Name)
		for _, hint := range e.confirmHints {
			if hint != "" && strings.Contains(name, textutil.Fold(hint)) {
				return f, true
			}
		}
	}

	return forms[0], true
}

// formNames はフォーム参照の名前一覧を返す。無名フォームは"(unnamed)"と表記する。
func formNames(forms []portal.FormRef) []string {
	names := make([]string, 0, len(forms))
	for _, f := range forms {
		if f.Name == "" {
			names = append(names, "(unnamed)")
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// outcomeMessage は終端結果に対応するユーザー向けメッセージを返す。
func outcomeMessage(outcome model.EnrollOutcome) string {
	switch outcome {
	case model.EnrollOutcomeSuccess:
		return "登録が完了しました。"
	case model.EnrollOutcomeWaitlist:
		return "ウェイティングリストに登録されました。"
	case model.EnrollOutcomeAlreadyEnrolled:
		return "既にこのコースに登録済みです。"
	case model.EnrollOutcomeClosed:
		return "登録できません（締切または満席）。"
	default:
		return "登録結果を判定できませんでした。ポータル上で登録状態を確認してください。"
	}
}
