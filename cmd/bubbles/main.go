// Command bubbles renders an animated cellular noise image.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cellfield/bubbles/internal/config"
	"github.com/spf13/pflag"
)

// build info, set via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bubbles:", err)
		os.Exit(1)
	}
}

// run parses args, loads the configuration and renders one animation.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("bubbles", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "bubbles %s (built %s)\n", Version, BuildDate)
		return nil
	}

	cfgErr := config.Load(*configDir)
	if cfgErr != nil && !config.IsNotFound(cfgErr) {
		return cfgErr
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	app, err := newApp(stdout, stderr)
	if err != nil {
		return err
	}
	defer app.close()

	if cfgErr != nil {
		app.logger.Debug("No config file, using defaults", "dir", *configDir)
	}
	return app.render(ctx)
}
