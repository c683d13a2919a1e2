package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// State はセッションのライフサイクル状態を表す。
type State int

const (
	// StateCreated は生成済みでまだ開始されていない状態。
	StateCreated State = iota
	// StateRunning はリフレッシュループが動作中の状態。
	StateRunning
	// StateTerminated は停止済みの状態。再開はできない。
	StateTerminated
)

// String は状態の文字列表現を返す。
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// DisplayState は1回の描画に使用する導出値のペア。
// 描画のたびに計算し直され、描画後は保持されない。
type DisplayState struct {
	// ElapsedSeconds はセッション開始からの経過秒数（0以上）。
	ElapsedSeconds int64
	// Color は通知の背景色。
	Color Color
}

// RenderSink はセッションが通知を出力する先の抽象。
// 本番ではSQLiteに裏付けられた通知レコード、テストでは記録用の偽実装を使う。
type RenderSink interface {
	// Render は通知を現在の表示内容で描画（更新）する。
	Render(ctx context.Context, state DisplayState) error
	// Withdraw は通知を取り下げる。
	Withdraw(ctx context.Context) error
}

// Session は1つのサービスセッションを表す。
// 開始時刻は開始時に一度だけ記録され、セッションの生存中は不変。
// ハイライト色のみが再抽選コマンドによって変化する。
type Session struct {
	// id はセッションの一意識別子。
	id string
	// clock は時刻の取得と待機に使用する時計。
	clock Clock
	// sink は通知の描画先。
	sink RenderSink

	// mu は状態・開始時刻・色への並行アクセスを保護する。
	mu sync.RWMutex
	// state は現在のライフサイクル状態。
	state State
	// startTime は開始時に記録された固定の開始時刻。
	startTime time.Time
	// color は現在のハイライト色。
	color Color

	// cancel はリフレッシュループを停止するためのキャンセル関数。
	cancel context.CancelFunc
	// done はリフレッシュループの終了を通知するチャネル。
	done chan struct{}
}

// New は未開始のセッションを生成する。
func New(id string, clock Clock, sink RenderSink) *Session {
	return &Session{
		id:    id,
		clock: clock,
		sink:  sink,
		state: StateCreated,
		done:  make(chan struct{}),
	}
}

// ID はセッションの一意識別子を返す。
func (s *Session) ID() string {
	return s.id
}

// State は現在のライフサイクル状態を返す。
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot は現在の表示内容（経過秒数と色）を返す。
func (s *Session) Snapshot() DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DisplayState{
		ElapsedSeconds: elapsedSeconds(s.startTime, s.clock.Now()),
		Color:          s.color,
	}
}

// Start はセッションを開始する。開始時刻を記録し、初期色を抽選したうえで
// リフレッシュループをバックグラウンドgoroutineとして起動する。
// 最初の描画はループの先頭で即時に行われる（経過秒数0）。
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCreated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("セッションを開始できません: state=%s", state)
	}
	s.state = StateRunning
	s.startTime = s.clock.Now()
	s.color = RandomBright()
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.refreshLoop(loopCtx)
	return nil
}

// Recolor は新しいハイライト色を128〜255の範囲から抽選し、
// 現在の経過秒数で即時に再描画する。周期ループの次回起床とは独立。
// 実行中でないセッションに対しては何もしない。
func (s *Session) Recolor(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.color = RandomBright()
	s.mu.Unlock()

	if err := s.renderAt(ctx, s.clock.Now()); err != nil {
		log.Printf("色変更後の再描画に失敗: %v", err)
	}
}

// Stop はリフレッシュループを停止し、通知を取り下げてセッションを終了する。
// ループの待機は即座にキャンセルされ、ループ終了を待ってから取り下げる。
// 冪等であり、2回目以降の呼び出しは何もしない。
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateRunning {
		// 未開始のままの終了はループが存在しないので状態遷移のみ
		s.state = StateTerminated
		s.mu.Unlock()
		return
	}
	s.state = StateTerminated
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.done

	if err := s.sink.Withdraw(ctx); err != nil {
		log.Printf("通知の取り下げに失敗: %v", err)
	}
}

// refreshLoop は1秒境界ごとに通知を描画し続けるリフレッシュループ。
// 描画の失敗はログに記録して続行する。コンテキストのキャンセルでのみ終了する。
func (s *Session) refreshLoop(ctx context.Context) {
	defer close(s.done)

	for {
		now := s.clock.Now()
		if err := s.renderAt(ctx, now); err != nil {
			log.Printf("通知の描画に失敗（次のティックで再試行）: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(sleepDuration(now.Sub(s.startTime))):
		}
	}
}

// renderAt は指定時刻時点の経過秒数と現在の色で通知を1回描画する。
func (s *Session) renderAt(ctx context.Context, now time.Time) error {
	s.mu.RLock()
	state := DisplayState{
		ElapsedSeconds: elapsedSeconds(s.startTime, now),
		Color:          s.color,
	}
	s.mu.RUnlock()

	return s.sink.Render(ctx, state)
}
