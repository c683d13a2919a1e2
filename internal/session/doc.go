// Package session はサービスセッションの内部実装を提供する。
//
// セッションは開始時刻を固定で保持し、経過秒数を表示する通知を
// 1秒境界ごとに再描画するリフレッシュループを実行する。
// 時計（Clock）と描画先（RenderSink）は注入可能であり、
// 実際のホスト環境なしでスケジューラを検証できる。
package session
