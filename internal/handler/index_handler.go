package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/regman/internal/model"
)

// IndexServiceInterface はインデックスハンドラーが必要とするサービスインターフェース。
type IndexServiceInterface interface {
	// EnsureIndex は必要に応じてバックグラウンドビルドを起動する。
	// 起動した場合はtrue、新鮮またはビルド進行中のため起動しなかった場合はfalseを返す。
	EnsureIndex(ctx context.Context, username, password string, force bool) bool
	// Status はアカウントのインデックス状態を返す。
	Status(username string) model.IndexStatus
}

// IndexHandler はインデックス管理のHTTPハンドラー。
type IndexHandler struct {
	service IndexServiceInterface
}

// NewIndexHandler はIndexHandlerを生成する。
func NewIndexHandler(service IndexServiceInterface) *IndexHandler {
	return &IndexHandler{service: service}
}

// reindexRequest は再構築リクエストのボディ。
type reindexRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Force    bool   `json:"force,omitempty"`
}

// reindexResponse は再構築リクエストのレスポンス。
type reindexResponse struct {
	Queued bool `json:"queued"`
}

// Reindex はインデックスの再構築をバックグラウンドで起動する。
// ビルドの完了は待たず、受理したことだけを202で応答する。
// POST /api/index/reindex
func (h *IndexHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
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

	queued := h.service.EnsureIndex(r.Context(), req.Username, req.Password, req.Force)

	writeJSON(w, http.StatusAccepted, reindexResponse{Queued: queued})
}

// Status はアカウントのインデックス状態を取得する。
// GET /api/index/status?username=xxx
func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("usernameは必須です"))
		return
	}

	status := h.service.Status(username)

	writeJSON(w, http.StatusOK, status)
}
