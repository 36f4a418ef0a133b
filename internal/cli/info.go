package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// infoOpts holds the command-line flags for the info command.
type infoOpts struct {
	refresh bool // bypass caches when resolving the plugin and its release
}

// newInfoCmd creates the info command showing details for a single plugin,
// including its latest release date and download counts when available.
func newInfoCmd(configFile *string) *cobra.Command {
	opts := infoOpts{}

	cmd := &cobra.Command{
		Use:   "info <plugin-id>",
		Short: "Show details for a single plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, *configFile, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass caches and refetch")

	return cmd
}

func runInfo(cmd *cobra.Command, configFile string, opts infoOpts, id string) error {
	ctx := cmd.Context()

	svc, err := newService(cmd, configFile)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Fetching plugin...")
	spinner.Start()
	plugin, err := svc.FindPlugin(ctx, id)
	spinner.Stop()
	if err != nil {
		return fetchErr(err)
	}

	fmt.Println(styleTitle.Render(plugin.Name))
	printNewline()
	printKeyValue("ID:", plugin.ID)
	printKeyValue("Author:", plugin.Author)
	printKeyValue("Repository:", plugin.Repo)
	if plugin.Branch != "" {
		printKeyValue("Branch:", plugin.Branch)
	}
	if plugin.Description != "" {
		printKeyValue("Description:", plugin.Description)
	}

	spinner = newSpinnerWithContext(ctx, "Resolving latest release...")
	spinner.Start()
	release, err := svc.GetReleaseInfo(ctx, plugin, opts.refresh)
	spinner.Stop()
	if err != nil {
		return err
	}

	printNewline()
	switch {
	case release == nil:
		printDetail("No release information available")
	default:
		printKeyValue("Released:", release.Date.Format("2006-01-02"))
		if release.Downloads > 0 {
			printKeyValue("Downloads:", styleNumber.Render(fmt.Sprintf("%d", release.Downloads)))
		}
	}

	if stats, err := svc.FetchStatistics(ctx, opts.refresh); err == nil {
		if s, ok := stats[plugin.ID]; ok && s.Downloads > 0 {
			printKeyValue("Total downloads:", styleNumber.Render(fmt.Sprintf("%d", s.Downloads)))
		}
	}

	notifyRateLimit(svc)
	return nil
}
