// Command vectra serves the prompt compiler and training pipeline API and
// offers CLI access to it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// serve shuts down gracefully when ctx is cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
