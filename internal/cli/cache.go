package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the cache inspection command.
//
// Caches are held in memory for the lifetime of a process, so there is
// nothing on disk to clear. The status subcommand shows the effective cache
// configuration for this machine.
func newCacheCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect cache configuration",
	}

	cmd.AddCommand(newCacheStatusCmd(configFile))
	cmd.AddCommand(newCacheClearCmd(configFile))

	return cmd
}

// newCacheClearCmd creates the "cache clear" subcommand. For one-shot CLI
// invocations this mostly exists for symmetry with the serve endpoint; a
// long-running serve process is where clearing pays off.
func newCacheClearCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached registry data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd, *configFile)
			if err != nil {
				return err
			}
			svc.ClearAllCaches()
			printSuccess("Caches cleared")
			printDetail("A running serve process keeps its own caches; use POST /cache/clear there")
			return nil
		},
	}
}

// newCacheStatusCmd creates the "cache status" subcommand.
func newCacheStatusCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show effective cache configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			path := *configFile
			if path == "" {
				if p, err := configPath(); err == nil {
					path = p
				}
			}

			fmt.Println(styleTitle.Render("Cache configuration"))
			printNewline()
			printKeyValue("Config file:", path)
			printKeyValue("Registry repo:", cfg.Registry.Repo)
			printKeyValue("Registry branch:", cfg.Registry.Branch)
			printKeyValue("Freshness window:", (time.Duration(cfg.Cache.FreshnessMinutes) * time.Minute).String())
			printKeyValue("Suppression window:", (time.Duration(cfg.Cache.SuppressionMinutes) * time.Minute).String())
			printKeyValue("Filter batch size:", fmt.Sprintf("%d", cfg.Filter.BatchSize))
			printKeyValue("Filter batch delay:", (time.Duration(cfg.Filter.BatchDelayMS) * time.Millisecond).String())
			printNewline()
			printDetail("Caches live in process memory and reset on every run")
			return nil
		},
	}
}
