// ABOUTME: Entry point for the crmdeck CLI
// ABOUTME: Builds the cobra command tree and cancels running commands on interrupt
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/crmdeck/cli"
)

const version = "0.2.0"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(version)
	defer app.Close()

	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
