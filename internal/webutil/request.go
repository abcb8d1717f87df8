// internal/webutil/request.go
package webutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"quizcards/internal/model"
)

// DecodeJSONBody はリクエストボディをデコードします
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return model.ErrInvalidInput
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return model.ErrInvalidInput
	}
	return nil
}

// DecodeJSONString はマルチパートフォームのフィールドなど、文字列で届いた
// JSONをデコードします
func DecodeJSONString(s string, dst interface{}) error {
	if s == "" {
		return model.ErrInvalidInput
	}
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return model.ErrInvalidInput
	}
	return nil
}

// PageParam はクエリパラメータからページ番号を読み取ります (最小値1)
func PageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
