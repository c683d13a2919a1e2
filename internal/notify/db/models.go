package db

import "time"

// Notification は永続通知レコードを表す。
// セッションごとに1行のみ存在し、描画のたびに同じ行が更新される。
type Notification struct {
	// ID は通知の一意識別子。セッションの生存中は不変。
	ID string
	// SessionID は通知を所有するセッションのID。
	SessionID string
	// Title は通知のタイトル（固定文言）。
	Title string
	// Body は通知の本文。経過秒数の10進文字列。
	Body string
	// ColorR はハイライト色の赤チャネル。
	ColorR int64
	// ColorG はハイライト色の緑チャネル。
	ColorG int64
	// ColorB はハイライト色の青チャネル。
	ColorB int64
	// UpdatedAt は最終描画日時。
	UpdatedAt time.Time
}

// SessionEvent はセッションのライフサイクルイベントレコードを表す。
// 追記のみ（append-only）で運用される。
type SessionEvent struct {
	// ID はイベントの一意識別子（UUID）。
	ID string
	// SessionID は対象セッションのID。
	SessionID string
	// EventType はイベントの種類。
	EventType string
	// Data はイベント固有のデータ（JSON文字列）。
	Data string
	// CreatedAt はイベントの作成日時。
	CreatedAt time.Time
}
