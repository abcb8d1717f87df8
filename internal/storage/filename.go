// internal/storage/filename.go
package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// 保存名の衝突を避けるためのサフィックス。英数字7文字あれば
// グローバルなカウンタやロックなしで実用上衝突しない。
const (
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 7
)

// UniqueName は元のファイル名の拡張子の前にランダムなサフィックスを挿入した
// 保存名を返します。例: "photo.png" -> "photo_A1b2C3d.png"
// 新しく保存するファイルには更新時も含めて必ず適用します。
func UniqueName(original string) (string, error) {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	id, err := gonanoid.Generate(suffixAlphabet, suffixLength)
	if err != nil {
		return "", fmt.Errorf("storage.UniqueName: %w", err)
	}
	return stem + "_" + id + ext, nil
}
