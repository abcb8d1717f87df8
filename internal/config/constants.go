// internal/config/constants.go
package config

import "time"

// アプリケーション情報
const (
	AppName    = "quizcards"
	AppVersion = "1.0.0"
)

// デフォルト設定値
const (
	DefaultServerPort      = ":8080"
	DefaultLogLevel        = "info"
	DefaultMediaDir        = "./media"
	DefaultDeckPageSize    = 7
	DefaultSearchPageSize  = 10
	DefaultCleanupInterval = 6 * time.Hour
)
