package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "modernc.org/sqlite"

	"github.com/nao1215/chronotify/internal/command"
	notifydb "github.com/nao1215/chronotify/internal/notify/db"
	"github.com/nao1215/chronotify/internal/session"
	"github.com/nao1215/chronotify/pkg/middleware"
)

// actionRecolorLabel は色変更アクションの表示ラベル。
const actionRecolorLabel = "色を変更"

// actionStopLabel は停止アクションの表示ラベル。
const actionStopLabel = "サービスを停止"

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はクエリ実行オブジェクト。
	queries *notifydb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// clock はセッションに注入する時計。
	clock session.Clock
	// jwtSecret はトリガートークンの署名に使用する共有鍵。
	jwtSecret []byte

	// mu はセッションの入れ替えとコマンド配送を直列化する。
	mu sync.Mutex
	// session は現在のサービスセッション。未開始の間はnil。
	session *session.Session
	// triggers は現在のセッション用のトリガーキャッシュ。
	triggers *command.TriggerCache
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "/data/chronotify.db?_journal_mode=WAL&_busy_timeout=5000"
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		queries:   notifydb.New(sqlDB),
		db:        sqlDB,
		clock:     session.SystemClock(),
		jwtSecret: []byte(jwtSecret),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		sess := api.Group("/session")
		{
			// セッション開始（冪等）
			sess.POST("/start", s.handleStart())
			// トリガートークンによるコマンド配送
			sess.POST("/command", s.handleCommand())
			// セッション状態取得
			sess.GET("", s.handleStatus())
			// セッションイベント一覧取得
			sess.GET("/events", s.handleEvents())
		}

		// 現在の通知レコード取得
		api.GET("/notification", s.handleNotification())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notify"})
	})

	// Prometheusメトリクス
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// handleStart はサービスセッションを開始するハンドラ。
// 実行中のセッションが既にある場合は新規作成せず、そのIDを返す（冪等）。
func (s *Server) handleStart() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.session != nil && s.session.State() == session.StateRunning {
			c.JSON(http.StatusOK, gin.H{
				"session_id": s.session.ID(),
				"message":    "セッションは既に実行中です",
			})
			return
		}

		sessionID := uuid.New().String()
		sink := newDBSink(s.queries, sessionID)
		sess := session.New(sessionID, s.clock, sink)

		// リフレッシュループはデーモンの生存期間と同じ寿命を持つ
		if err := sess.Start(context.Background()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "セッションの開始に失敗しました"})
			log.Printf("セッション開始エラー: %v", err)
			return
		}

		s.session = sess
		s.triggers = command.NewTriggerCache(s.jwtSecret, sessionID)

		s.appendEvent(c.Request.Context(), sessionID, EventSessionStarted, SessionStartedData{
			NotificationID: notificationID,
			Color:          sess.Snapshot().Color,
		})

		c.JSON(http.StatusCreated, gin.H{
			"session_id": sessionID,
			"message":    "セッションを開始しました",
		})
	}
}

// commandRequest はコマンド配送リクエストのJSON構造。
type commandRequest struct {
	// Token は通知アクションのトリガートークン。省略可。
	Token string `json:"token"`
}

// handleCommand はトリガートークンをデコードして実行中のセッションに
// コマンドを配送するハンドラ。トークンの欠落・改ざん・未知のコマンドは
// すべて黙って無視し、正常応答を返す（コマンド経路は信頼しない）。
// 停止コマンドの場合のみdispositionが"shutdown"になる。
func (s *Server) handleCommand() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req commandRequest
		// ボディの欠落や不正JSONはコマンド無しとして扱う
		_ = c.ShouldBindJSON(&req)

		s.mu.Lock()
		defer s.mu.Unlock()

		disposition := "restart"

		kind, sessionID, ok := command.DecodeTrigger(s.jwtSecret, req.Token)
		if !ok || s.session == nil || sessionID != s.session.ID() ||
			s.session.State() != session.StateRunning {
			c.JSON(http.StatusOK, gin.H{"disposition": disposition})
			return
		}

		ctx := c.Request.Context()
		switch kind {
		case command.KindRecolor:
			s.session.Recolor(ctx)
			commandsTotal.WithLabelValues(string(command.KindRecolor)).Inc()
			s.appendEvent(ctx, sessionID, EventColorChanged, ColorChangedData{
				Color: s.session.Snapshot().Color,
			})
		case command.KindStop:
			elapsed := s.session.Snapshot().ElapsedSeconds
			s.session.Stop(ctx)
			commandsTotal.WithLabelValues(string(command.KindStop)).Inc()
			s.appendEvent(ctx, sessionID, EventSessionStopped, SessionStoppedData{
				ElapsedSeconds: elapsed,
			})
			disposition = "shutdown"
		}

		c.JSON(http.StatusOK, gin.H{"disposition": disposition})
	}
}

// colorResponse はハイライト色のJSONレスポンス構造。
type colorResponse struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// actionResponse は通知アクションのJSONレスポンス構造。
type actionResponse struct {
	// Label はアクションの表示ラベル。
	Label string `json:"label"`
	// Command はコマンド種別。
	Command string `json:"command"`
	// Token はアクションを発火させるトリガートークン。
	Token string `json:"token"`
}

// notificationResponse は通知レコードのJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// SessionID は通知を所有するセッションのID。
	SessionID string `json:"session_id"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Text は通知の本文（経過秒数の10進文字列）。
	Text string `json:"text"`
	// Color は通知の背景色。
	Color colorResponse `json:"color"`
	// Actions は通知のアクション一覧。
	Actions []actionResponse `json:"actions"`
	// UpdatedAt は最終描画日時（RFC3339形式）。
	UpdatedAt string `json:"updated_at"`
}

// handleNotification は現在の通知レコードを返すハンドラ。
// セッションが実行中でない場合は404を返す。
func (s *Server) handleNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		sess := s.session
		triggers := s.triggers
		s.mu.Unlock()

		if sess == nil || sess.State() != session.StateRunning {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知は掲示されていません"})
			return
		}

		n, err := s.queries.GetNotification(c.Request.Context(), notificationID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知は掲示されていません"})
			return
		}

		recolorToken, err := triggers.Token(command.KindRecolor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トリガーの生成に失敗しました"})
			log.Printf("トリガー生成エラー: %v", err)
			return
		}
		stopToken, err := triggers.Token(command.KindStop)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トリガーの生成に失敗しました"})
			log.Printf("トリガー生成エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, notificationResponse{
			ID:        n.ID,
			SessionID: n.SessionID,
			Title:     n.Title,
			Text:      n.Body,
			Color:     colorResponse{R: uint8(n.ColorR), G: uint8(n.ColorG), B: uint8(n.ColorB)},
			Actions: []actionResponse{
				{Label: actionRecolorLabel, Command: string(command.KindRecolor), Token: recolorToken},
				{Label: actionStopLabel, Command: string(command.KindStop), Token: stopToken},
			},
			UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
		})
	}
}

// handleStatus は現在のセッション状態を返すハンドラ。
func (s *Server) handleStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		sess := s.session
		s.mu.Unlock()

		if sess == nil {
			c.JSON(http.StatusOK, gin.H{"state": "none"})
			return
		}

		snap := sess.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"state":           sess.State().String(),
			"session_id":      sess.ID(),
			"elapsed_seconds": snap.ElapsedSeconds,
		})
	}
}

// sessionEventResponse はセッションイベントのJSONレスポンス構造。
type sessionEventResponse struct {
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

// handleEvents はセッションイベントの一覧を返すハンドラ。
// session_idクエリパラメータを省略した場合は現在のセッションを対象とする。
func (s *Server) handleEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if sessionID == "" {
			s.mu.Lock()
			if s.session != nil {
				sessionID = s.session.ID()
			}
			s.mu.Unlock()
		}
		if sessionID == "" {
			c.JSON(http.StatusOK, []sessionEventResponse{})
			return
		}

		events, err := s.queries.ListSessionEvents(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベント一覧の取得に失敗しました"})
			log.Printf("イベント一覧取得エラー: %v", err)
			return
		}

		responses := make([]sessionEventResponse, 0, len(events))
		for _, e := range events {
			responses = append(responses, sessionEventResponse{
				ID:        e.ID,
				SessionID: e.SessionID,
				EventType: e.EventType,
				Data:      json.RawMessage(e.Data),
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}

// appendEvent はセッションイベントを記録する。
// イベント記録の失敗はログに残すのみで、通知自体の動作は止めない。
func (s *Server) appendEvent(ctx context.Context, sessionID string, eventType EventType, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("イベントデータのシリアライズに失敗: %v", err)
		return
	}

	err = s.queries.CreateSessionEvent(ctx, notifydb.CreateSessionEventParams{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: string(eventType),
		Data:      string(jsonData),
	})
	if err != nil {
		log.Printf("セッションイベントの記録に失敗: %v", err)
	}
}
