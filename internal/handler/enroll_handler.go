package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/regman/internal/model"
)

// EnrollServiceInterface は履修登録ハンドラーが必要とするサービスインターフェース。
type EnrollServiceInterface interface {
	// Enroll は指定コースへの登録を1回試行し、終端結果を返す。
	// ポータル操作そのものが失敗した場合のみエラーを返す。
	Enroll(ctx context.Context, username, password, planPointID, courseID string, opts model.EnrollOptions) (*model.EnrollResult, error)
}

// EnrollHandler は履修登録のHTTPハンドラー。
type EnrollHandler struct {
	service EnrollServiceInterface
}

// NewEnrollHandler はEnrollHandlerを生成する。
func NewEnrollHandler(service EnrollServiceInterface) *EnrollHandler {
	return &EnrollHandler{service: service}
}

// enrollRequest は履修登録リクエストのボディ。
type enrollRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	PlanPointID  string `json:"plan_point_id"`
	CourseID     string `json:"course_id"`
	Group        string `json:"group,omitempty"`
	JoinWaitlist bool   `json:"join_waitlist,omitempty"`
}

// Enroll は指定コースへの登録を試行する。
// 二重登録リスクがあるため、サーバー側では一切自動リトライしない。
// POST /api/enroll
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
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
	if req.PlanPointID == "" || req.CourseID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("plan_point_idとcourse_idは必須です"))
		return
	}

	result, err := h.service.Enroll(r.Context(), req.Username, req.Password,
		req.PlanPointID, req.CourseID, model.EnrollOptions{
			Group:        req.Group,
			JoinWaitlist: req.JoinWaitlist,
		})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
