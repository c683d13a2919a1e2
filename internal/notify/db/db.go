// Package db は通知サービスのSQLiteクエリ実行層を提供する。
// db/notify/query.sql から生成されるコードと同じ形を保つこと。
package db

import (
	"context"
	"database/sql"
)

// DBTX はクエリ実行に必要なデータベース操作の抽象。
// *sql.DB と *sql.Tx の両方を受け付ける。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New はクエリ実行オブジェクトを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries はSQLクエリの実行メソッドをまとめたオブジェクト。
type Queries struct {
	db DBTX
}
