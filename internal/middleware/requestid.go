package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// contextKey はこのパッケージ専用のコンテキストキー型。
type contextKey string

const requestIDKey contextKey = "request_id"

// ErrRequestIDNotFound はコンテキストにリクエストIDが存在しないことを示す。
var ErrRequestIDNotFound = errors.New("request id not found in context")

// NewRequestIDMiddleware は各リクエストにUUIDのリクエストIDを割り当てるミドルウェアを返す。
// 割り当てたIDはコンテキストとX-Request-IDレスポンスヘッダーの両方に設定する。
// クライアントがX-Request-IDヘッダーを送ってきた場合はそれを引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrRequestIDNotFound
	}
	return requestID, nil
}
