package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/chronotify/internal/command"
	notifydb "github.com/nao1215/chronotify/internal/notify/db"
	"github.com/nao1215/chronotify/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer はテスト用の通知サーバーをインメモリSQLiteで構築する。
// テスト終了時に実行中のセッションを停止し、DBをクリーンアップする。
func setupTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	// インメモリDBはコネクションごとに独立するため1本に固定する
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}

	router := gin.New()
	s := &Server{
		router:    router,
		port:      "0",
		queries:   notifydb.New(sqlDB),
		db:        sqlDB,
		clock:     session.SystemClock(),
		jwtSecret: []byte("test-secret-key"),
	}
	s.setupRoutes()

	t.Cleanup(func() {
		s.mu.Lock()
		sess := s.session
		s.mu.Unlock()
		if sess != nil {
			sess.Stop(context.Background())
		}
	})

	return s, router
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// startSession はセッションを開始し、そのIDを返すヘルパー関数。
func startSession(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/api/v1/session/start", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("セッション開始に失敗: status=%d, body=%s", w.Code, w.Body.String())
	}
	result := parseJSON(t, w)
	sessionID, ok := result["session_id"].(string)
	if !ok || sessionID == "" {
		t.Fatal("開始結果にsession_idが含まれていません")
	}
	return sessionID
}

// waitForNotification は初回描画が完了して通知が取得できるまで待つヘルパー関数。
func waitForNotification(t *testing.T, router *gin.Engine) map[string]any {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doRequest(router, http.MethodGet, "/api/v1/notification", nil)
		if w.Code == http.StatusOK {
			return parseJSON(t, w)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("通知が時間内に掲示されなかった")
	return nil
}

// actionToken は通知レスポンスから指定コマンドのトリガートークンを取り出す。
func actionToken(t *testing.T, notification map[string]any, cmd string) string {
	t.Helper()

	actions, ok := notification["actions"].([]any)
	if !ok {
		t.Fatalf("actionsが配列ではありません: %v", notification["actions"])
	}
	for _, a := range actions {
		action, ok := a.(map[string]any)
		if !ok {
			continue
		}
		if action["command"] == cmd {
			token, _ := action["token"].(string)
			return token
		}
	}
	t.Fatalf("%sアクションが見つかりません", cmd)
	return ""
}

// TestHealthCheck はヘルスチェックエンドポイントの正常動作を検証する。
func TestHealthCheck(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	w := doRequest(router, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	result := parseJSON(t, w)
	if result["status"] != "ok" {
		t.Errorf("status: got %v, want ok", result["status"])
	}
	if result["service"] != "notify" {
		t.Errorf("service: got %v, want notify", result["service"])
	}
}

// TestHandleStart はセッション開始ハンドラのテスト。
func TestHandleStart(t *testing.T) {
	t.Parallel()

	t.Run("セッションを開始できること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		sessionID := startSession(t, router)
		if sessionID == "" {
			t.Fatal("session_idが空です")
		}
	})

	t.Run("実行中の再開始は冪等であること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		first := startSession(t, router)

		w := doRequest(router, http.MethodPost, "/api/v1/session/start", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("2回目の開始のステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["session_id"] != first {
			t.Errorf("session_id: got %v, want %v", result["session_id"], first)
		}
	})

	t.Run("開始直後に経過0の通知が掲示されること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		n := waitForNotification(t, router)

		if n["title"] != notificationTitle {
			t.Errorf("title: got %v, want %v", n["title"], notificationTitle)
		}
		if n["text"] != "0" {
			t.Errorf("text: got %v, want 0", n["text"])
		}
		if n["id"] != notificationID {
			t.Errorf("id: got %v, want %v", n["id"], notificationID)
		}

		color, ok := n["color"].(map[string]any)
		if !ok {
			t.Fatalf("colorがオブジェクトではありません: %v", n["color"])
		}
		for _, ch := range []string{"r", "g", "b"} {
			v, ok := color[ch].(float64)
			if !ok || v < 128 || v > 255 {
				t.Errorf("color.%s = %v, 128〜255の範囲外", ch, color[ch])
			}
		}
	})

	t.Run("通知に2つのアクションが含まれ再取得しても同一であること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		n := waitForNotification(t, router)

		recolor := actionToken(t, n, "recolor")
		stop := actionToken(t, n, "stop")
		if recolor == "" || stop == "" {
			t.Fatal("トリガートークンが空です")
		}
		if recolor == stop {
			t.Error("recolorとstopのトークンが同一になった")
		}

		// 再描画（再取得）してもトリガーの同一性は保たれる
		w := doRequest(router, http.MethodGet, "/api/v1/notification", nil)
		n2 := parseJSON(t, w)
		if got := actionToken(t, n2, "recolor"); got != recolor {
			t.Error("再取得でrecolorトークンが変化した")
		}
		if got := actionToken(t, n2, "stop"); got != stop {
			t.Error("再取得でstopトークンが変化した")
		}
	})

	t.Run("停止後は新しいセッションを開始できること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		first := startSession(t, router)
		n := waitForNotification(t, router)
		stopToken := actionToken(t, n, "stop")

		w := doRequest(router, http.MethodPost, "/api/v1/session/command", map[string]string{"token": stopToken})
		if w.Code != http.StatusOK {
			t.Fatalf("停止コマンドに失敗: status=%d", w.Code)
		}

		second := startSession(t, router)
		if second == first {
			t.Error("停止後の開始が同じsession_idを返した")
		}
	})
}

// TestHandleCommand はコマンド配送ハンドラのテスト。
func TestHandleCommand(t *testing.T) {
	t.Parallel()

	t.Run("トークン無しはno-opで正常応答が返ること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		before := waitForNotification(t, router)

		w := doRequest(router, http.MethodPost, "/api/v1/session/command", nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["disposition"] != "restart" {
			t.Errorf("disposition: got %v, want restart", result["disposition"])
		}

		// セッションも通知もそのまま
		after := waitForNotification(t, router)
		if after["session_id"] != before["session_id"] {
			t.Error("no-opでセッションが変化した")
		}
	})

	t.Run("不正なトークンはno-opで正常応答が返ること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		waitForNotification(t, router)

		w := doRequest(router, http.MethodPost, "/api/v1/session/command",
			map[string]string{"token": "壊れたトークン"})
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["disposition"] != "restart" {
			t.Errorf("disposition: got %v, want restart", result["disposition"])
		}

		// 通知は引き続き掲示されている
		w2 := doRequest(router, http.MethodGet, "/api/v1/notification", nil)
		if w2.Code != http.StatusOK {
			t.Errorf("no-op後の通知取得: got %d, want %d", w2.Code, http.StatusOK)
		}
	})

	t.Run("別の鍵で署名されたトークンはno-opであること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		waitForNotification(t, router)

		// 攻撃者が自前の鍵で作ったトークンは受理されない
		other := command.NewTriggerCache([]byte("other-secret"), "session-x")
		token, err := other.Token(command.KindStop)
		if err != nil {
			t.Fatalf("テスト用トークンの生成に失敗: %v", err)
		}

		w := doRequest(router, http.MethodPost, "/api/v1/session/command",
			map[string]string{"token": token})
		result := parseJSON(t, w)
		if result["disposition"] != "restart" {
			t.Errorf("disposition: got %v, want restart", result["disposition"])
		}

		w2 := doRequest(router, http.MethodGet, "/api/v1/notification", nil)
		if w2.Code != http.StatusOK {
			t.Error("偽造トークンでセッションが停止された")
		}
	})

	t.Run("recolorで色が変わり通知が即時再描画されること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		sessionID := startSession(t, router)
		n := waitForNotification(t, router)
		token := actionToken(t, n, "recolor")

		w := doRequest(router, http.MethodPost, "/api/v1/session/command",
			map[string]string{"token": token})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["disposition"] != "restart" {
			t.Errorf("disposition: got %v, want restart", result["disposition"])
		}

		// 再描画後も色は明るい範囲に収まる
		after := waitForNotification(t, router)
		color, ok := after["color"].(map[string]any)
		if !ok {
			t.Fatalf("colorがオブジェクトではありません: %v", after["color"])
		}
		for _, ch := range []string{"r", "g", "b"} {
			v, ok := color[ch].(float64)
			if !ok || v < 128 || v > 255 {
				t.Errorf("color.%s = %v, 128〜255の範囲外", ch, color[ch])
			}
		}

		// ColorChangedイベントが記録される
		w2 := doRequest(router, http.MethodGet, "/api/v1/session/events?session_id="+sessionID, nil)
		events := parseJSONArray(t, w2)
		found := false
		for _, e := range events {
			if e["event_type"] == string(EventColorChanged) {
				found = true
			}
		}
		if !found {
			t.Error("ColorChangedイベントが記録されていない")
		}
	})

	t.Run("recolorは何度でも発火できること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		n := waitForNotification(t, router)
		token := actionToken(t, n, "recolor")

		for i := 0; i < 3; i++ {
			w := doRequest(router, http.MethodPost, "/api/v1/session/command",
				map[string]string{"token": token})
			if w.Code != http.StatusOK {
				t.Fatalf("%d回目のrecolorに失敗: status=%d", i+1, w.Code)
			}
			result := parseJSON(t, w)
			if result["disposition"] != "restart" {
				t.Errorf("%d回目のdisposition: got %v, want restart", i+1, result["disposition"])
			}
		}
	})

	t.Run("stopでセッションが終了し通知が取り下げられること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		startSession(t, router)
		n := waitForNotification(t, router)
		token := actionToken(t, n, "stop")

		w := doRequest(router, http.MethodPost, "/api/v1/session/command",
			map[string]string{"token": token})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["disposition"] != "shutdown" {
			t.Errorf("disposition: got %v, want shutdown", result["disposition"])
		}

		// 通知は取り下げられている
		w2 := doRequest(router, http.MethodGet, "/api/v1/notification", nil)
		if w2.Code != http.StatusNotFound {
			t.Errorf("停止後の通知取得: got %d, want %d", w2.Code, http.StatusNotFound)
		}

		// 状態はterminated
		w3 := doRequest(router, http.MethodGet, "/api/v1/session", nil)
		status := parseJSON(t, w3)
		if status["state"] != "terminated" {
			t.Errorf("state: got %v, want terminated", status["state"])
		}

		// 停止後の古いトークンはno-opとして扱われる
		w4 := doRequest(router, http.MethodPost, "/api/v1/session/command",
			map[string]string{"token": token})
		result4 := parseJSON(t, w4)
		if result4["disposition"] != "restart" {
			t.Errorf("停止後のdisposition: got %v, want restart", result4["disposition"])
		}
	})
}

// TestHandleStatus はセッション状態取得ハンドラのテスト。
func TestHandleStatus(t *testing.T) {
	t.Parallel()

	t.Run("セッションが無ければnoneが返ること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/session", nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["state"] != "none" {
			t.Errorf("state: got %v, want none", result["state"])
		}
	})

	t.Run("実行中のセッションの状態が返ること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		sessionID := startSession(t, router)

		w := doRequest(router, http.MethodGet, "/api/v1/session", nil)
		result := parseJSON(t, w)
		if result["state"] != "running" {
			t.Errorf("state: got %v, want running", result["state"])
		}
		if result["session_id"] != sessionID {
			t.Errorf("session_id: got %v, want %v", result["session_id"], sessionID)
		}
		elapsed, ok := result["elapsed_seconds"].(float64)
		if !ok || elapsed < 0 {
			t.Errorf("elapsed_seconds = %v, 0以上の数値であるべき", result["elapsed_seconds"])
		}
	})
}

// TestHandleEvents はセッションイベント一覧ハンドラのテスト。
func TestHandleEvents(t *testing.T) {
	t.Parallel()

	t.Run("セッションが無ければ空配列が返ること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/session/events", nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		events := parseJSONArray(t, w)
		if len(events) != 0 {
			t.Errorf("イベント数: got %d, want 0", len(events))
		}
	})

	t.Run("ライフサイクルイベントが順序通り記録されること", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		sessionID := startSession(t, router)
		n := waitForNotification(t, router)

		// recolor → stop の順に発火させる
		recolorToken := actionToken(t, n, "recolor")
		stopToken := actionToken(t, n, "stop")
		doRequest(router, http.MethodPost, "/api/v1/session/command", map[string]string{"token": recolorToken})
		doRequest(router, http.MethodPost, "/api/v1/session/command", map[string]string{"token": stopToken})

		w := doRequest(router, http.MethodGet, "/api/v1/session/events?session_id="+sessionID, nil)
		events := parseJSONArray(t, w)
		if len(events) != 3 {
			t.Fatalf("イベント数: got %d, want 3, body=%s", len(events), w.Body.String())
		}

		wantTypes := []string{
			string(EventSessionStarted),
			string(EventColorChanged),
			string(EventSessionStopped),
		}
		for i, want := range wantTypes {
			if events[i]["event_type"] != want {
				t.Errorf("events[%d].event_type: got %v, want %v", i, events[i]["event_type"], want)
			}
		}
	})
}

// TestNotificationTextIsDecimal は通知本文が経過秒数の10進文字列であることを検証する。
func TestNotificationTextIsDecimal(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	startSession(t, router)
	n := waitForNotification(t, router)

	text, ok := n["text"].(string)
	if !ok {
		t.Fatalf("textが文字列ではありません: %v", n["text"])
	}
	seconds, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		t.Fatalf("textが10進整数ではありません: %q", text)
	}
	if seconds < 0 {
		t.Errorf("経過秒数が負: %d", seconds)
	}
}

// TestMetricsEndpoint はPrometheusメトリクスの公開を検証する。
func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	w := doRequest(router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, name := range []string{"chronotify_renders_total", "chronotify_render_failures_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("メトリクス%sが含まれていない", name)
		}
	}
}
