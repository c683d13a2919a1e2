// 通知デーモンを操作するCLI。
// セッションの開始ボタンと通知アクションのタップに相当する操作を提供する。
//
// 使い方:
//
//	chronotify start    セッションを開始する（実行中なら何もしない）
//	chronotify status   セッションの状態と経過秒数を表示する
//	chronotify show     現在の通知を表示する
//	chronotify recolor  「色を変更」アクションを発火させる
//	chronotify stop     「サービスを停止」アクションを発火させる
//	chronotify events   セッションイベントの一覧を表示する
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nao1215/chronotify/pkg/client"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	baseURL := os.Getenv("CHRONOTIFY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8087"
	}
	cli := client.New(baseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(ctx, cli)
	case "status":
		err = runStatus(ctx, cli)
	case "show":
		err = runShow(ctx, cli)
	case "recolor":
		err = runFire(ctx, cli, "recolor")
	case "stop":
		err = runFire(ctx, cli, "stop")
	case "events":
		err = runEvents(ctx, cli)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s に失敗: %v", os.Args[1], err)
	}
}

// usage はコマンドの使い方を表示する。
func usage() {
	fmt.Fprintln(os.Stderr, "使い方: chronotify <start|status|show|recolor|stop|events>")
}

// runStart はセッションの開始を要求する。
func runStart(ctx context.Context, cli *client.Client) error {
	result, err := cli.StartSession(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (session_id=%s)\n", result.Message, result.SessionID)
	return nil
}

// runStatus はセッションの状態を表示する。
func runStatus(ctx context.Context, cli *client.Client) error {
	status, err := cli.GetStatus(ctx)
	if err != nil {
		return err
	}
	if status.State == "none" {
		fmt.Println("セッションはありません")
		return nil
	}
	fmt.Printf("state=%s session_id=%s elapsed=%ds\n",
		status.State, status.SessionID, status.ElapsedSeconds)
	return nil
}

// runShow は現在の通知を表示する。
func runShow(ctx context.Context, cli *client.Client) error {
	n, err := cli.GetNotification(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNoNotification) {
			fmt.Println("通知は掲示されていません")
			return nil
		}
		return err
	}
	fmt.Printf("%s: %s秒 (色 #%02X%02X%02X)\n", n.Title, n.Text, n.Color.R, n.Color.G, n.Color.B)
	for _, a := range n.Actions {
		fmt.Printf("  [%s]\n", a.Label)
	}
	return nil
}

// runFire は通知から指定コマンドのアクションを探して発火させる。
// 通知アクションのタップに相当する。
func runFire(ctx context.Context, cli *client.Client, cmd string) error {
	n, err := cli.GetNotification(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNoNotification) {
			fmt.Println("通知は掲示されていません")
			return nil
		}
		return err
	}

	for _, a := range n.Actions {
		if a.Command != cmd {
			continue
		}
		disposition, err := cli.Fire(ctx, a.Token)
		if err != nil {
			return err
		}
		fmt.Printf("%s を実行しました (disposition=%s)\n", a.Label, disposition)
		return nil
	}
	return fmt.Errorf("通知に %s アクションが見つかりません", cmd)
}

// runEvents はセッションイベントの一覧を表示する。
func runEvents(ctx context.Context, cli *client.Client) error {
	events, err := cli.ListEvents(ctx, os.Getenv("CHRONOTIFY_SESSION_ID"))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("イベントはありません")
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s %s %s\n", e.CreatedAt, e.EventType, string(e.Data))
	}
	return nil
}
