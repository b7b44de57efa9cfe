// dashctl signs in to the dashboard's authorization model from a terminal
// and answers capability questions for the signed-in principal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dashboard-pro/dashboard-pro/cmd/dashctl/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.New().Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
