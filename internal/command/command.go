package command

// Kind はコマンドの種類を表す。RecolorとStopの2種類のみ。
type Kind string

const (
	// KindRecolor はハイライト色の再抽選を要求するコマンド。
	KindRecolor Kind = "recolor"
	// KindStop は通知の取り下げとセッションの終了を要求するコマンド。
	KindStop Kind = "stop"
)

// ParseKind は文字列をKindにデコードする。
// 既知のコマンド以外は ok=false を返す。呼び出し側はno-opとして扱う。
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindRecolor:
		return KindRecolor, true
	case KindStop:
		return KindStop, true
	default:
		return "", false
	}
}
