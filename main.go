package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the gateway command and maps its outcome to a process exit
// code. Failures are logged to errOut.
func execute(ctx context.Context, args []string, errOut io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log := logrus.New()
		log.SetOutput(errOut)
		log.WithError(err).Error("gateway exited")
		return 1
	}
	return 0
}
