// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/regman/internal/model"
	"github.com/hitoshi/regman/internal/portal"
)

// apiErrorResponse はAPIエラーレスポンスの統一フォーマット。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// ポータルアダプタのエラー型はここでAPIErrorへマッピングする。
func handleServiceError(w http.ResponseWriter, err error) {
	var authErr *portal.AuthError
	if errors.As(err, &authErr) {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewPortalAuthError(authErr.Reason))
		return
	}

	var navErr *portal.NavigationError
	if errors.As(err, &navErr) {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewPortalNavigationError(navErr.Reason))
		return
	}

	var fetchErr *portal.FetchError
	if errors.As(err, &fetchErr) {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewPortalFetchError(fetchErr.Error()))
		return
	}

	var notFoundErr *portal.NotFoundError
	if errors.As(err, &notFoundErr) {
		writeAPIErrorResponse(w, http.StatusNotFound,
			model.NewCourseNotFoundError(notFoundErr.PlanPointID, notFoundErr.CourseID))
		return
	}

	var submitErr *portal.SubmitError
	if errors.As(err, &submitErr) {
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewEnrollSubmitError(submitErr.Error()))
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 上記以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodePortalAuth:
		return http.StatusUnauthorized
	case model.ErrCodePortalNavigation, model.ErrCodePortalFetch, model.ErrCodeEnrollSubmit:
		return http.StatusBadGateway
	case model.ErrCodeCourseNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
