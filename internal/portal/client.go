package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/regman/internal/model"
)

// userAgent はポータルへのリクエストに付与するUser-Agentヘッダ。
const userAgent = "Regman/1.0 Course Registration Assistant"

// SafeClientFactory はSSRF防止付きHTTPクライアント生成のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SafeClientFactory interface {
	NewSafeClient(timeout time.Duration) *http.Client
}

// Client はポータルへのHTTPアクセスを実装するAdapter。
// ページ取得・フォーム送信はセッションごとのクッキージャー付きクライアントで行い、
// 各リクエストにはページ単位のタイムアウトを適用する。
type Client struct {
	baseURL     string
	dialect     Dialect
	clients     SafeClientFactory
	pageTimeout time.Duration
	logger      *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// pageTimeoutが0以下の場合はデフォルト値10秒を使用する。
func NewClient(
	baseURL string,
	dialect Dialect,
	clients SafeClientFactory,
	pageTimeout time.Duration,
	logger *slog.Logger,
) *Client {
	if pageTimeout <= 0 {
		pageTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		dialect:     dialect,
		clients:     clients,
		pageTimeout: pageTimeout,
		logger:      logger,
	}
}

// Login は認証を行い、ログイン済みセッションを返す。
//  1. ログインページを取得し、accesskey属性からユーザー名/パスワード入力欄を特定する
//  2. hiddenを含むフォーム値を埋めて送信する
//  3. リダイレクト先URLからセッションのベースURLを導出する
//
// 送信後のページに再びパスワード入力欄が存在する場合は認証失敗と判定する。
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	httpClient := c.clients.NewSafeClient(c.pageTimeout)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("cookie jar init: %v", err)}
	}
	httpClient.Jar = jar

	doc, pageURL, err := c.getDoc(ctx, httpClient, c.baseURL)
	if err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("login page fetch: %v", err)}
	}

	// ログインフォームの特定（name指定、フォールバックで先頭フォーム）
	formSel := doc.Find(fmt.Sprintf("form[name=%q]", c.dialect.LoginFormName)).First()
	if formSel.Length() == 0 {
		formSel = doc.Find("form").First()
	}
	if formSel.Length() == 0 {
		return nil, &AuthError{Reason: "login form not found"}
	}

	userField := formSel.Find(fmt.Sprintf("input[accesskey=%q]", c.dialect.UsernameAccessKey)).AttrOr("name", "")
	passField := formSel.Find(fmt.Sprintf("input[accesskey=%q]", c.dialect.PasswordAccessKey)).AttrOr("name", "")
	// accesskeyが見つからない場合のフォールバック: input typeで推定する
	if userField == "" {
		userField = formSel.Find(`input[type="text"]`).First().AttrOr("name", "")
	}
	if passField == "" {
		passField = formSel.Find(`input[type="password"]`).First().AttrOr("name", "")
	}
	if userField == "" || passField == "" {
		return nil, &AuthError{Reason: "username/password fields not found on login page"}
	}

	form := parseFormRef(formSel, pageURL)
	form.Values.Set(userField, username)
	form.Values.Set(passField, password)

	resDoc, resURL, err := c.postForm(ctx, httpClient, form.Action, form.Values)
	if err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("login submit: %v", err)}
	}

	// 認証失敗時はログインページへ戻されるため、パスワード欄の有無で判定する
	if resDoc.Find(fmt.Sprintf("input[accesskey=%q]", c.dialect.PasswordAccessKey)).Length() > 0 ||
		resDoc.Find(`input[type="password"]`).Length() > 0 {
		return nil, &AuthError{Reason: "invalid credentials"}
	}

	base := resURL.String()
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[:idx+1]
	}

	c.logger.Info("ポータルへログインしました",
		slog.String("base", base),
	)

	return &Session{base: base, client: httpClient}, nil
}

// ListPlanPoints は学習プラン上の全プランポイントを列挙順で返す。
// 概要ページに学習プランフォームが見つからない場合は、
// 目印を含むリンクを辿って1段だけフォールバック探索する。
func (c *Client) ListPlanPoints(ctx context.Context, s *Session) ([]model.PlanPointRef, error) {
	doc, pageURL, err := c.ensureOverview(ctx, s)
	if err != nil {
		return nil, err
	}

	formSel := c.findStudyPlanForm(doc)
	if formSel == nil {
		return nil, &NavigationError{Reason: "study plan form not found after login"}
	}

	form := parseFormRef(formSel, pageURL)

	// 学習プラン選択セレクトは先頭オプションをそのまま使用する
	// （parseFormRefが選択中または先頭オプションを収集済み）
	resDoc, _, err := c.postForm(ctx, s.client, form.Action, form.Values)
	if err != nil {
		return nil, &NavigationError{Reason: fmt.Sprintf("study plan form submit: %v", err)}
	}

	refs := parsePlanRows(resDoc, c.dialect)
	if len(refs) == 0 {
		return nil, &NavigationError{Reason: "plan point table not found or empty"}
	}

	return refs, nil
}

// FetchCourses はプランポイント配下のコース一覧を行順で返す。
func (c *Client) FetchCourses(ctx context.Context, s *Session, ref model.PlanPointRef) ([]RawCourseRecord, error) {
	if ref.ListURL == "" {
		return nil, nil
	}

	target := s.base + ref.ListURL
	doc, _, err := c.getDoc(ctx, s.client, target)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	return parseCourseRows(doc, c.dialect), nil
}

// LocateCourseRow は指定プランポイントのコース一覧から対象コースの行を特定する。
func (c *Client) LocateCourseRow(ctx context.Context, s *Session, planPointID, courseID string) (*CourseRow, error) {
	refs, err := c.ListPlanPoints(ctx, s)
	if err != nil {
		return nil, err
	}

	var target *model.PlanPointRef
	for i := range refs {
		if refs[i].ID == planPointID {
			target = &refs[i]
			break
		}
	}
	if target == nil || target.ListURL == "" {
		return nil, &NotFoundError{PlanPointID: planPointID}
	}

	listURL := s.base + target.ListURL
	doc, pageURL, err := c.getDoc(ctx, s.client, listURL)
	if err != nil {
		return nil, &FetchError{URL: listURL, Err: err}
	}

	var row *CourseRow
	doc.Find(c.dialect.DataTableSelector + " tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if cleanText(tr.Find(c.dialect.CourseIDSelector).First().Text()) != courseID {
			return true
		}

		row = &CourseRow{
			PlanPointID: planPointID,
			CourseID:    courseID,
			Status:      cleanText(tr.Find(c.dialect.StatusSelector).First().Text()),
		}

		formSel := tr.Find(c.dialect.ActionFormSelector).First()
		if formSel.Length() > 0 {
			row.Form = parseFormRef(formSel, pageURL)
			row.HasForm = true
		}
		return false
	})

	if row == nil {
		return nil, &NotFoundError{PlanPointID: planPointID, CourseID: courseID}
	}

	return row, nil
}

// Submit は行の登録フォームを送信し、応答ページを返す。
// グループ選択・ウェイティングリスト参加のコントロールは、
// name属性の部分一致で探し、存在する場合のみ設定する。
func (c *Client) Submit(ctx context.Context, s *Session, row *CourseRow, opts model.EnrollOptions) (*ResultPage, error) {
	if row == nil || !row.HasForm {
		return nil, &SubmitError{Err: errors.New("course row has no submit form")}
	}

	values := url.Values{}
	for k, vs := range row.Form.Values {
		for _, v := range vs {
			values.Add(k, v)
		}
	}

	for key := range values {
		lower := strings.ToLower(key)
		if opts.Group != "" && strings.Contains(lower, c.dialect.GroupControlHint) {
			values.Set(key, opts.Group)
		}
		if opts.JoinWaitlist && strings.Contains(lower, c.dialect.WaitlistControlHint) {
			values.Set(key, "1")
		}
	}

	doc, pageURL, err := c.postForm(ctx, s.client, row.Form.Action, values)
	if err != nil {
		return nil, &SubmitError{Err: err}
	}

	return parseResultPage(doc, pageURL), nil
}

// SubmitForm は応答ページ上のフォームをそのまま送信する。
func (c *Client) SubmitForm(ctx context.Context, s *Session, form FormRef) (*ResultPage, error) {
	doc, pageURL, err := c.postForm(ctx, s.client, form.Action, form.Values)
	if err != nil {
		return nil, &SubmitError{Err: err}
	}
	return parseResultPage(doc, pageURL), nil
}

// ensureOverview は学習プランフォームを含む概要ページのドキュメントを返す。
func (c *Client) ensureOverview(ctx context.Context, s *Session) (*goquery.Document, *url.URL, error) {
	doc, pageURL, err := c.getDoc(ctx, s.client, s.base)
	if err != nil {
		return nil, nil, &NavigationError{Reason: fmt.Sprintf("overview fetch: %v", err)}
	}

	if c.findStudyPlanForm(doc) != nil {
		return doc, pageURL, nil
	}

	// フォールバック: 目印を含むリンクを順に辿る
	var candidates []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		if strings.Contains(strings.ToLower(href), c.dialect.OverviewLinkHint) {
			candidates = append(candidates, href)
		}
	})

	for _, href := range candidates {
		target := href
		if !strings.HasPrefix(href, "http") {
			target = s.base + href
		}
		d2, u2, err := c.getDoc(ctx, s.client, target)
		if err != nil {
			continue
		}
		if c.findStudyPlanForm(d2) != nil {
			return d2, u2, nil
		}
	}

	return nil, nil, &NavigationError{Reason: "overview page with study plan form not reachable"}
}

// findStudyPlanForm は学習プランフォームを探す。
// name指定のフォーム、なければプラン選択コントロールを含む任意のフォームを返す。
func (c *Client) findStudyPlanForm(doc *goquery.Document) *goquery.Selection {
	sel := doc.Find(fmt.Sprintf("form[name=%q]", c.dialect.StudyPlanFormName)).First()
	if sel.Length() > 0 {
		return sel
	}

	var found *goquery.Selection
	doc.Find("form").EachWithBreak(func(_ int, f *goquery.Selection) bool {
		if f.Find(fmt.Sprintf("select[name=%q]", c.dialect.PlanSelectControl)).Length() > 0 {
			found = f
			return false
		}
		return true
	})
	return found
}

// getDoc はページを取得してgoqueryドキュメントと最終URLを返す。
// リクエストにはページ単位のタイムアウトを適用する。
func (c *Client) getDoc(ctx context.Context, client *http.Client, target string) (*goquery.Document, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, target)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return doc, resp.Request.URL, nil
}

// postForm はフォームをURLエンコードで送信し、応答ドキュメントと最終URLを返す。
func (c *Client) postForm(ctx context.Context, client *http.Client, action string, values url.Values) (*goquery.Document, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, action)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return doc, resp.Request.URL, nil
}
