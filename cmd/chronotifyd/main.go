// 通知デーモンのエントリポイント。
// サービスセッションと永続通知レコードを管理し、
// 経過秒数の表示を1秒境界ごとに更新し続ける。
package main

import (
	"log"
	"os"

	"github.com/nao1215/chronotify/internal/notify"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8087"
	}

	server, err := notify.NewServer(port)
	if err != nil {
		log.Fatalf("通知デーモンの初期化に失敗: %v", err)
	}

	log.Printf("通知デーモンを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("通知デーモンの起動に失敗: %v", err)
	}
}
