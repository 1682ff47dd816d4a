// Command nedindex builds candidate indexes of knowledge-graph entities
// and answers candidate lookups against them.
//
// Usage:
//
//	nedindex build --file yago-companies.ttl --index-dir ./index
//	nedindex query --index-dir ./index --token AAPL
//	nedindex query --index-dir ./index --context "the maker of the iPhone" -k 5
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scrypster/nedindex/internal/config"
	"github.com/scrypster/nedindex/internal/logger"
	"github.com/scrypster/nedindex/internal/logger/console"
)

func main() {
	// A missing .env is normal; everything can come from the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	cfg   *config.Config
	out   io.Writer
	debug bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "nedindex",
		Short:         "Build and query named-entity candidate indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if a.debug {
				cfg.Log.Debug = true
			}
			a.cfg = cfg
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  cfg.Log.Debug,
				Output: errOut,
			}))
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (overrides NEDINDEX_DEBUG)")

	root.AddCommand(newBuildCmd(a), newQueryCmd(a))
	return root
}
