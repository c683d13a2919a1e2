// Package command は通知アクションからセッションへ届くコマンドの
// デコードとトリガートークンの管理を提供する。
//
// コマンドは「色変更」と「停止」の2種類のみの閉じた集合である。
// トリガーはコマンド種別とセッションIDを埋め込んだ署名付きトークンで、
// 検証に失敗した入力はエラーではなく常に無視（no-op）として扱う。
package command
