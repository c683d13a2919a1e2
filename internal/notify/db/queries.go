package db

import "context"

const upsertNotification = `
INSERT INTO notifications (id, session_id, title, body, color_r, color_g, color_b, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
ON CONFLICT(id) DO UPDATE SET
    body = excluded.body,
    color_r = excluded.color_r,
    color_g = excluded.color_g,
    color_b = excluded.color_b,
    updated_at = excluded.updated_at
`

// UpsertNotificationParams はUpsertNotificationのパラメータ。
type UpsertNotificationParams struct {
	ID        string
	SessionID string
	Title     string
	Body      string
	ColorR    int64
	ColorG    int64
	ColorB    int64
}

// UpsertNotification は通知レコードを作成または更新する。
// 同じIDの行を置き換えるため、更新で通知が複製されることはない。
func (q *Queries) UpsertNotification(ctx context.Context, arg UpsertNotificationParams) error {
	_, err := q.db.ExecContext(ctx, upsertNotification,
		arg.ID, arg.SessionID, arg.Title, arg.Body, arg.ColorR, arg.ColorG, arg.ColorB)
	return err
}

const getNotification = `
SELECT id, session_id, title, body, color_r, color_g, color_b, updated_at
FROM notifications
WHERE id = ?
`

// GetNotification はIDを指定して通知レコードを取得する。
func (q *Queries) GetNotification(ctx context.Context, id string) (Notification, error) {
	row := q.db.QueryRowContext(ctx, getNotification, id)
	var n Notification
	err := row.Scan(&n.ID, &n.SessionID, &n.Title, &n.Body, &n.ColorR, &n.ColorG, &n.ColorB, &n.UpdatedAt)
	return n, err
}

const deleteNotification = `
DELETE FROM notifications WHERE id = ?
`

// DeleteNotification は通知レコードを削除（取り下げ）する。
func (q *Queries) DeleteNotification(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteNotification, id)
	return err
}

const createSessionEvent = `
INSERT INTO session_events (id, session_id, event_type, data)
VALUES (?, ?, ?, ?)
`

// CreateSessionEventParams はCreateSessionEventのパラメータ。
type CreateSessionEventParams struct {
	ID        string
	SessionID string
	EventType string
	Data      string
}

// CreateSessionEvent はセッションイベントを追記する。
func (q *Queries) CreateSessionEvent(ctx context.Context, arg CreateSessionEventParams) error {
	_, err := q.db.ExecContext(ctx, createSessionEvent,
		arg.ID, arg.SessionID, arg.EventType, arg.Data)
	return err
}

const listSessionEvents = `
SELECT id, session_id, event_type, data, created_at
FROM session_events
WHERE session_id = ?
ORDER BY rowid ASC
`

// ListSessionEvents は指定セッションのイベントを作成順に取得する。
func (q *Queries) ListSessionEvents(ctx context.Context, sessionID string) ([]SessionEvent, error) {
	rows, err := q.db.QueryContext(ctx, listSessionEvents, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Data, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
