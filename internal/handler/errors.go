package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/watchfav/internal/middleware"
	"github.com/hitoshi/watchfav/internal/model"
)

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if statusCode >= http.StatusInternalServerError {
			slog.Error("request failed",
				slog.String("code", apiErr.Code),
				slog.String("error", err.Error()),
			)
		}
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeStorageUnavailable, model.ErrCodeCatalogUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeNoSelection, model.ErrCodeInvalidWatch:
		return http.StatusUnprocessableEntity
	case model.ErrCodeWatchNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeDeserializationFailed:
		// 壊れた保存値に対する削除は実行できない
		return http.StatusConflict
	case model.ErrCodeConfirmationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeScreen は画面を200で返す。保存値の破損は画面の通知で伝えるためエラーにしない。
func writeScreen(w http.ResponseWriter, screen any, err error) {
	if err != nil && !errors.Is(err, model.ErrDeserializationFailed) {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, screen)
}

// writeMutation は変更操作の結果を返す。
// 変更が保存されなかった場合は保存値の破損も含めてエラーとして返す。
func writeMutation(w http.ResponseWriter, result any, err error) {
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}
