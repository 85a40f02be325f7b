// Command savectl inspects and edits save slots in a configured store.
//
//	savectl [global flags] <command> [flags] [args]
//
// It opens the store named by the settings file (or --driver/--path), acts
// as the owner of a one-shot subsystem and exits. Slots written by savectl
// hold "kv" records, plain string maps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dailyyoga/savekit/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Stdout, os.Stderr, os.Args)
	stop()
	// logger.New installs the command logger as the global one
	_ = logger.Sync()
	os.Exit(code)
}
