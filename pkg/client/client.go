package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoNotification は通知が掲示されていないことを表す。
var ErrNoNotification = errors.New("通知は掲示されていません")

// Client は通知デーモンのAPIを呼び出すHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先デーモンのベースURL。
	baseURL string
}

// New は新しいクライアントを生成する。
// baseURLには接続先デーモンのベースURL（例: "http://localhost:8087"）を指定する。
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// StartResult はセッション開始APIの結果。
type StartResult struct {
	// SessionID は開始された（または既に実行中の）セッションのID。
	SessionID string `json:"session_id"`
	// Message は結果メッセージ。
	Message string `json:"message"`
}

// StartSession はサービスセッションの開始を要求する。冪等であり、
// 既に実行中の場合は実行中セッションのIDが返る。
func (c *Client) StartSession(ctx context.Context) (*StartResult, error) {
	var result StartResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/session/start", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Color はハイライト色。
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Action は通知のアクション。
type Action struct {
	// Label はアクションの表示ラベル。
	Label string `json:"label"`
	// Command はコマンド種別。
	Command string `json:"command"`
	// Token はアクションを発火させるトリガートークン。
	Token string `json:"token"`
}

// Notification は描画済みの通知レコード。
type Notification struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// SessionID は通知を所有するセッションのID。
	SessionID string `json:"session_id"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Text は通知の本文（経過秒数の10進文字列）。
	Text string `json:"text"`
	// Color は通知の背景色。
	Color Color `json:"color"`
	// Actions は通知のアクション一覧。
	Actions []Action `json:"actions"`
	// UpdatedAt は最終描画日時（RFC3339形式）。
	UpdatedAt string `json:"updated_at"`
}

// GetNotification は現在の通知レコードを取得する。
// 通知が掲示されていない場合はErrNoNotificationを返す。
func (c *Client) GetNotification(ctx context.Context) (*Notification, error) {
	var n Notification
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/notification", nil, &n)
	if err != nil {
		var httpErr *StatusError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, ErrNoNotification
		}
		return nil, err
	}
	return &n, nil
}

// Fire は通知アクションのトリガートークンをコマンドAPIへ送り返す。
// 戻り値はデーモンが報告したdisposition（"restart" または "shutdown"）。
func (c *Client) Fire(ctx context.Context, token string) (string, error) {
	body := map[string]string{"token": token}
	var result struct {
		Disposition string `json:"disposition"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/session/command", body, &result); err != nil {
		return "", err
	}
	return result.Disposition, nil
}

// Status はセッションの現在状態。
type Status struct {
	// State はセッションのライフサイクル状態。セッションが無い場合は"none"。
	State string `json:"state"`
	// SessionID はセッションのID。
	SessionID string `json:"session_id"`
	// ElapsedSeconds は開始からの経過秒数。
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

// GetStatus はセッションの現在状態を取得する。
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/session", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Event はセッションのライフサイクルイベント。
type Event struct {
	// ID はイベントの一意識別子。
	ID string `json:"id"`
	// SessionID は対象セッションのID。
	SessionID string `json:"session_id"`
	// EventType はイベントの種類。
	EventType string `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントの作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// ListEvents はセッションイベントの一覧を取得する。
// sessionIDを空にすると現在のセッションが対象になる。
func (c *Client) ListEvents(ctx context.Context, sessionID string) ([]Event, error) {
	path := "/api/v1/session/events"
	if sessionID != "" {
		path = fmt.Sprintf("%s?session_id=%s", path, sessionID)
	}
	var events []Event
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// StatusError は2xx以外のHTTPレスポンスを表すエラー。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body string
}

// Error はエラーの文字列表現を返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, e.Body)
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}
