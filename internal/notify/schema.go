package notify

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。internal/notify/db の各クエリと同期すること。
const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    -- 通知の一意識別子。更新のたびに同じ行を置き換える
    id TEXT PRIMARY KEY,
    -- 通知を所有するセッションのID
    session_id TEXT NOT NULL,
    -- 通知のタイトル（固定文言）
    title TEXT NOT NULL,
    -- 通知の本文。経過秒数の10進文字列
    body TEXT NOT NULL,
    -- ハイライト色の各チャネル（128〜255）
    color_r INTEGER NOT NULL,
    color_g INTEGER NOT NULL,
    color_b INTEGER NOT NULL,
    -- 最終描画日時
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS session_events (
    -- イベントの一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 対象セッションのID
    session_id TEXT NOT NULL,
    -- イベントの種類
    event_type TEXT NOT NULL,
    -- イベント固有のデータ（JSON形式）
    data TEXT NOT NULL,
    -- イベントの作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

-- セッションIDでのイベント検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_session_events_session_id
    ON session_events(session_id);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
