// Package notify は通知サービスの内部実装を提供する。
//
// 1つのサービスセッションを所有し、開始からの経過秒数を表示する
// 永続通知レコードをSQLiteに保持する。通知のアクション（色変更・停止）は
// 署名付きトリガートークンとして公開され、コマンドAPI経由で
// 実行中のセッションに配送される。
package notify
