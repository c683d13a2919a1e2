package session

import "time"

// Clock はセッションが使用する時計の抽象。
// テストでは任意に時刻を進められる偽の時計に差し替える。
type Clock interface {
	// Now は現在時刻を返す。
	Now() time.Time
	// After は指定時間の経過後に発火するチャネルを返す。
	After(d time.Duration) <-chan time.Time
}

// systemClock は実時間を使用するClockの実装。
type systemClock struct{}

// SystemClock は実時間を使用するClockを返す。
func SystemClock() Clock {
	return systemClock{}
}

// Now は現在時刻を返す。
func (systemClock) Now() time.Time {
	return time.Now()
}

// After はtime.Afterをそのまま使用する。
func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
