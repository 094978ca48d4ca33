package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prolink-bio/prolink/internal/app"
	"github.com/prolink-bio/prolink/internal/cli"
)

func main() {
	// Bootstrap logger; the app builds its own once the flags are parsed.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the real logic so tests can drive it with an arbitrary writer
// and argument list.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// NewApp panics on startup errors; turn that into an error return.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	prolinkApp := app.NewApp(outW, appConfig)
	return prolinkApp.Run(context.Background(), appConfig)
}
