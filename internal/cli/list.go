package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/plugindex/plugindex/pkg/registry"
)

// listOpts holds the command-line flags for the list command.
type listOpts struct {
	refresh bool   // bypass freshness window and conditional caching
	since   string // only show plugins released on or after this date (YYYY-MM-DD)
	limit   int    // maximum number of plugins to print (0 = all)
}

// newListCmd creates the list command. It fetches the registry, optionally
// narrows it to plugins with a release on or after --since, and prints one
// line per plugin.
func newListCmd(configFile *string) *cobra.Command {
	opts := listOpts{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins from the community registry",
		Long: `List plugins from the community registry.

The registry is cached in memory for the configured freshness window and
revalidated with conditional requests after that. Use --refresh to force a
full refetch.

Examples:
  plugindex list
  plugindex list --since 2026-01-01
  plugindex list --refresh --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, *configFile, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass caches and refetch")
	cmd.Flags().StringVar(&opts.since, "since", "", "only plugins released on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of plugins to show (0 = all)")

	return cmd
}

func runList(cmd *cobra.Command, configFile string, opts listOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	svc, err := newService(cmd, configFile)
	if err != nil {
		return err
	}

	var cutoff time.Time
	if opts.since != "" {
		cutoff, err = time.Parse("2006-01-02", opts.since)
		if err != nil {
			return fmt.Errorf("invalid --since date %q (expected YYYY-MM-DD)", opts.since)
		}
	}

	spinner := newSpinnerWithContext(ctx, "Fetching registry...")
	spinner.Start()
	plugins, err := svc.FetchRegistry(ctx, opts.refresh)
	spinner.Stop()
	if err != nil {
		return fetchErr(err)
	}
	logger.Debugf("registry returned %d plugins", len(plugins))

	if !cutoff.IsZero() {
		spinner = newSpinnerWithContext(ctx, "Checking release dates...")
		spinner.Start()
		plugins, err = svc.RunDateFilter(ctx, plugins, cutoff)
		spinner.Stop()
		if err != nil {
			return err
		}
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].ID < plugins[j].ID })
	if opts.limit > 0 && len(plugins) > opts.limit {
		plugins = plugins[:opts.limit]
	}

	printPlugins(plugins)
	notifyRateLimit(svc)
	return nil
}

// printPlugins writes one line per plugin: id, name, and author.
func printPlugins(plugins []registry.Plugin) {
	if len(plugins) == 0 {
		printInfo("No plugins found")
		return
	}

	width := 0
	for _, p := range plugins {
		if len(p.ID) > width {
			width = len(p.ID)
		}
	}
	for _, p := range plugins {
		id := styleTitle.Render(fmt.Sprintf("%-*s", width, p.ID))
		fmt.Println(id + "  " + styleValue.Render(p.Name) + " " + styleDim.Render("by "+p.Author))
	}
	printNewline()
	printDetail("%d plugins", len(plugins))
}
