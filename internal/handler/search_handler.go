package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/regman/internal/model"
)

// maxQueryLen は検索クエリの最大長。これを超えるリクエストは拒否する。
const maxQueryLen = 200

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// Search はキャッシュとライブスキャンを組み合わせたベストエフォート検索を実行する。
	Search(ctx context.Context, username, password, q string, limit int) (*model.SearchResult, error)
}

// SearchHandler はコース検索のHTTPハンドラー。
type SearchHandler struct {
	service SearchServiceInterface
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface) *SearchHandler {
	return &SearchHandler{service: service}
}

// searchRequest はコース検索リクエストのボディ。
// ポータルの認証情報はセッションに保存せず、リクエストごとに受け取る。
type searchRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
}

// Search はコースを検索する。
// POST /api/courses/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.Username == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("usernameとpasswordは必須です"))
		return
	}
	if len(req.Query) > maxQueryLen {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("queryが長すぎます"))
		return
	}
	if req.Limit < 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("limitは0以上で指定してください"))
		return
	}

	result, err := h.service.Search(r.Context(), req.Username, req.Password, req.Query, req.Limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// itemsは空でもnullではなく[]として返す
	if result.Items == nil {
		result.Items = []model.CourseItem{}
	}

	writeJSON(w, http.StatusOK, result)
}
