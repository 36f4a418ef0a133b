package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/plugindex/plugindex/pkg/fetch"
	"github.com/plugindex/plugindex/pkg/registry"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the plugindex CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (list, info,
// stats, serve, cache), configures logging based on the --verbose flag, and
// executes the command tree.
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configFile string
	)

	root := &cobra.Command{
		Use:          "plugindex",
		Short:        "Plugindex keeps a fast local view of a community plugin registry",
		Long:         `Plugindex maintains a locally cached view of a remotely published plugin registry and keeps it fresh with minimal network cost: fresh values are served with zero I/O, stale ones are revalidated with conditional requests, and the rate-limited releases API is only consulted as a last resort.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("plugindex %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/plugindex/config.toml)")

	root.AddCommand(newListCmd(&configFile))
	root.AddCommand(newInfoCmd(&configFile))
	root.AddCommand(newStatsCmd(&configFile))
	root.AddCommand(newServeCmd(&configFile))
	root.AddCommand(newCacheCmd(&configFile))
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}

// newService builds the registry service for a command invocation from the
// config file and the context logger.
func newService(cmd *cobra.Command, configFile string) (*registry.Service, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	return registry.NewService(cfg.serviceOptions(loggerFromContext(cmd.Context()))), nil
}

// fetchErr translates a fetch failure with no cached fallback into the
// message shown to users. Rate limits get their reset time; everything else
// gets a retry suggestion.
func fetchErr(err error) error {
	var rle *fetch.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("API rate limit reached and no cached data is available (resets at %s)", rle.ResetAt.Format(time.Kitchen))
	}
	if errors.Is(err, fetch.ErrNetwork) {
		return fmt.Errorf("could not reach the registry and no cached data is available, try again shortly: %w", err)
	}
	return err
}

// notifyRateLimit prints the single deferred rate-limit notice for this
// invocation, if any request ran into quota limits.
func notifyRateLimit(svc *registry.Service) {
	sig := svc.LastRateLimit()
	if !sig.Limited {
		return
	}
	wait := time.Until(sig.ResetAt).Round(time.Minute)
	if wait > 0 {
		printWarning("API rate limit reached, showing cached data (resets in %s)", wait)
		return
	}
	printWarning("API rate limit reached, showing cached data")
}
