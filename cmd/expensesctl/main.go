// Command expensesctl manages shared expense spaces from the terminal.
//
//	expensesctl <command> [flags]
//
// Every invocation logs in with EXPENSES_USERNAME and EXPENSES_PASSWORD; the
// token is never written to disk.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"expensetracker/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	cfg, _ := cli.LoadConfig(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
