package session

import "time"

// minTick はリフレッシュループの最小待機時間。
// 描画が1秒境界を跨いだ場合でもビジーループに陥らないための下限。
const minTick = 100 * time.Millisecond

// elapsedSeconds は開始時刻から現在時刻までの経過秒数を返す。
// 常に0以上であり、now < start の場合は0を返す。
func elapsedSeconds(start, now time.Time) int64 {
	if now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / time.Second)
}

// sleepDuration は表示秒数が次に増える1秒境界までの待機時間を返す。
// 経過時間の絶対値から毎回計算し直すため、個々のティックが遅延しても
// 累積的なずれ（ドリフト）は発生しない。戻り値は常にminTick以上。
func sleepDuration(elapsed time.Duration) time.Duration {
	d := time.Second - elapsed%time.Second
	if d < minTick {
		return minTick
	}
	return d
}
