package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/plugindex/plugindex/pkg/registry"
)

// statsOpts holds the command-line flags for the stats command.
type statsOpts struct {
	refresh bool // bypass caches and refetch the statistics blob
	top     int  // number of plugins to show, sorted by downloads
}

// newStatsCmd creates the stats command showing download counts from the
// aggregated statistics blob, most downloaded first.
func newStatsCmd(configFile *string) *cobra.Command {
	opts := statsOpts{top: 25}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show download statistics for registry plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, *configFile, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass caches and refetch")
	cmd.Flags().IntVar(&opts.top, "top", opts.top, "number of plugins to show (0 = all)")

	return cmd
}

// statsRow pairs a plugin id with its statistics for sorting.
type statsRow struct {
	id    string
	stats registry.PluginStats
}

func runStats(cmd *cobra.Command, configFile string, opts statsOpts) error {
	ctx := cmd.Context()

	svc, err := newService(cmd, configFile)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Fetching statistics...")
	spinner.Start()
	stats, err := svc.FetchStatistics(ctx, opts.refresh)
	spinner.Stop()
	if err != nil {
		return fetchErr(err)
	}

	rows := make([]statsRow, 0, len(stats))
	for id, s := range stats {
		rows = append(rows, statsRow{id: id, stats: s})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].stats.Downloads != rows[j].stats.Downloads {
			return rows[i].stats.Downloads > rows[j].stats.Downloads
		}
		return rows[i].id < rows[j].id
	})
	if opts.top > 0 && len(rows) > opts.top {
		rows = rows[:opts.top]
	}

	if len(rows) == 0 {
		printInfo("No statistics available")
		return nil
	}

	width := 0
	for _, r := range rows {
		if len(r.id) > width {
			width = len(r.id)
		}
	}
	for _, r := range rows {
		line := styleTitle.Render(fmt.Sprintf("%-*s", width, r.id)) +
			"  " + styleNumber.Render(fmt.Sprintf("%10d", r.stats.Downloads))
		if t, ok := r.stats.UpdatedTime(); ok {
			line += "  " + styleDim.Render("updated "+t.Format("2006-01-02"))
		}
		fmt.Println(line)
	}
	printNewline()
	printDetail("%d plugins with statistics", len(stats))

	notifyRateLimit(svc)
	return nil
}
