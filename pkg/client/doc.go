// Package client は通知デーモン（chronotifyd）のAPIを呼び出すクライアントを提供する。
//
// CLIがセッションの開始・状態確認・通知アクションの発火を行う際に使用する。
// 通知アクションの発火は、描画済み通知に含まれるトリガートークンを
// そのままコマンドAPIへ送り返すことで行う。
package client
