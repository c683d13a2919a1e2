package command

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TriggerClaims はトリガートークンのクレーム（ペイロード）を表す。
// どのセッションに対するどのコマンドかをトークン自体に埋め込む。
type TriggerClaims struct {
	jwt.RegisteredClaims
	// Command はコマンド種別（"recolor" または "stop"）。
	Command string `json:"command"`
	// SessionID は配送先セッションの一意識別子。
	SessionID string `json:"session_id"`
}

// TriggerCache はセッション1つ分のトリガートークンを種別ごとに保持する。
// トークンは初回要求時に一度だけ生成され、以降は同一のトークンを返す。
// 通知が何度再描画されても2つのアクションのトリガーは同一性を保つ。
type TriggerCache struct {
	// secret はトークン署名に使用する共有鍵。
	secret []byte
	// sessionID はこのキャッシュが属するセッションのID。
	sessionID string

	// mu はtokensの遅延生成を保護する。初回アクセスが並行しても
	// 同じ種別のトークンが二重に生成されないようにする。
	mu sync.RWMutex
	// tokens は生成済みトークンの種別ごとのキャッシュ。
	tokens map[Kind]string
}

// NewTriggerCache は指定セッション用のトリガーキャッシュを生成する。
func NewTriggerCache(secret []byte, sessionID string) *TriggerCache {
	return &TriggerCache{
		secret:    secret,
		sessionID: sessionID,
		tokens:    make(map[Kind]string),
	}
}

// Token は指定種別のトリガートークンを返す。
// 未生成の場合のみ署名を行い、以降は同じトークンを返す（遅延シングルトン）。
func (c *TriggerCache) Token(kind Kind) (string, error) {
	c.mu.RLock()
	token, ok := c.tokens[kind]
	c.mu.RUnlock()
	if ok {
		return token, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// ロック獲得までの間に他のgoroutineが生成済みの可能性があるため再確認する
	if token, ok := c.tokens[kind]; ok {
		return token, nil
	}

	token, err := c.mint(kind)
	if err != nil {
		return "", err
	}
	c.tokens[kind] = token
	return token, nil
}

// mint は指定種別のトリガートークンを署名して生成する。
func (c *TriggerCache) mint(kind Kind) (string, error) {
	claims := TriggerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   "chronotify",
		},
		Command:   string(kind),
		SessionID: c.sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("トリガートークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// DecodeTrigger はトリガートークンを検証し、コマンド種別と
// 配送先セッションIDを取り出す。署名検証の失敗・不正な形式・
// 未知のコマンドはすべて ok=false として返し、エラーにはしない。
func DecodeTrigger(secret []byte, token string) (Kind, string, bool) {
	if token == "" {
		return "", "", false
	}

	claims := &TriggerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", false
	}

	kind, ok := ParseKind(claims.Command)
	if !ok || claims.SessionID == "" {
		return "", "", false
	}
	return kind, claims.SessionID, true
}
