// Package main provides the entry point for the provmap command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"provmap/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
