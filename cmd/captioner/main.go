package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/captioner/internal/cli"
	cerrors "github.com/matzehuels/captioner/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // SIGINT
		}
		fmt.Fprintln(os.Stderr, cerrors.UserMessage(err))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	preRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
			cli.EnableTracing(c.Logger)
		}
		if preRun != nil {
			return preRun(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}

// exitCode separates bad input (2) from everything else (1).
func exitCode(err error) int {
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidOption, cerrors.ErrCodeInvalidFormat,
		cerrors.ErrCodeInvalidProfile, cerrors.ErrCodeInvalidConfig, cerrors.ErrCodeInvalidPath,
		cerrors.ErrCodeFileNotFound, cerrors.ErrCodeDecode:
		return 2
	}
	return 1
}
