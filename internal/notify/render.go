package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nao1215/chronotify/internal/notify/db"
	"github.com/nao1215/chronotify/internal/session"
)

// notificationID は永続通知レコードの固定ID。
// 通知は常に1件のみで、描画のたびに同じ行を置き換える。
const notificationID = "chronotify-primary"

// notificationTitle は通知の固定タイトル。
const notificationTitle = "経過時間"

// dbSink はSQLiteの通知レコードを描画先とするRenderSinkの実装。
type dbSink struct {
	// queries は通知テーブルへのクエリ実行オブジェクト。
	queries *db.Queries
	// sessionID は通知を所有するセッションのID。
	sessionID string
}

// newDBSink は指定セッション用の描画先を生成する。
func newDBSink(queries *db.Queries, sessionID string) *dbSink {
	return &dbSink{
		queries:   queries,
		sessionID: sessionID,
	}
}

// Render は通知レコードを現在の表示内容で更新する。
// 本文は経過秒数の10進文字列、背景色は現在のハイライト色。
func (s *dbSink) Render(ctx context.Context, state session.DisplayState) error {
	rendersTotal.Inc()

	err := s.queries.UpsertNotification(ctx, db.UpsertNotificationParams{
		ID:        notificationID,
		SessionID: s.sessionID,
		Title:     notificationTitle,
		Body:      strconv.FormatInt(state.ElapsedSeconds, 10),
		ColorR:    int64(state.Color.R),
		ColorG:    int64(state.Color.G),
		ColorB:    int64(state.Color.B),
	})
	if err != nil {
		renderFailuresTotal.Inc()
		return fmt.Errorf("通知レコードの更新に失敗: %w", err)
	}
	return nil
}

// Withdraw は通知レコードを削除（取り下げ）する。
func (s *dbSink) Withdraw(ctx context.Context) error {
	if err := s.queries.DeleteNotification(ctx, notificationID); err != nil {
		return fmt.Errorf("通知レコードの削除に失敗: %w", err)
	}
	return nil
}
