package session

import "math/rand/v2"

// brightMin は各チャネルの最小値。文字が読める明るさを保証するため、
// バイト値の上半分（128〜255）からのみ色を選ぶ。
const brightMin = 128

// Color は通知の背景色を表すRGB値。
type Color struct {
	// R は赤チャネル（128〜255）。
	R uint8 `json:"r"`
	// G は緑チャネル（128〜255）。
	G uint8 `json:"g"`
	// B は青チャネル（128〜255）。
	B uint8 `json:"b"`
}

// RandomBright は各チャネルを128〜255の範囲から独立かつ一様に選んだ色を返す。
func RandomBright() Color {
	return Color{
		R: uint8(brightMin + rand.IntN(256-brightMin)),
		G: uint8(brightMin + rand.IntN(256-brightMin)),
		B: uint8(brightMin + rand.IntN(256-brightMin)),
	}
}
