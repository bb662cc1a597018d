package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler cancels the returned context on SIGINT/SIGQUIT/SIGTERM.
// A second signal panics rather than waiting for a graceful shutdown.
func SetupSignalHandler() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	go func() {
		<-sigc
		cancel()
		<-sigc
		panic("received second signal, exiting immediately")
	}()

	return ctx, cancel
}
