// Command watchfav は時計カタログとお気に入りの画面APIサーバーを起動する。
//
// 使い方:
//
//	watchfav [serve|migrate|repair|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/watchfav/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("watchfav exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
