package notify

import "github.com/nao1215/chronotify/internal/session"

// EventType はセッションイベントの種類を表す。
type EventType string

const (
	// EventSessionStarted はセッションが開始されたことを表す。
	EventSessionStarted EventType = "SessionStarted"
	// EventColorChanged はハイライト色が再抽選されたことを表す。
	EventColorChanged EventType = "ColorChanged"
	// EventSessionStopped はセッションが停止されたことを表す。
	EventSessionStopped EventType = "SessionStopped"
)

// SessionStartedData はSessionStartedイベントのデータ。
type SessionStartedData struct {
	// NotificationID は掲示された通知のID。
	NotificationID string `json:"notification_id"`
	// Color は開始時に抽選されたハイライト色。
	Color session.Color `json:"color"`
}

// ColorChangedData はColorChangedイベントのデータ。
type ColorChangedData struct {
	// Color は新しく抽選されたハイライト色。
	Color session.Color `json:"color"`
}

// SessionStoppedData はSessionStoppedイベントのデータ。
type SessionStoppedData struct {
	// ElapsedSeconds は停止時点の経過秒数。
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}
