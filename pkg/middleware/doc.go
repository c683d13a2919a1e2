// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリなど、ハンドラ実装に依存しない横断的な処理を含む。
package middleware
