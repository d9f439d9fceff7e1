package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/internal/cache"
	"github.com/vidsan-cli/vidsan/internal/ui"
	"github.com/vidsan-cli/vidsan/provider"
	"github.com/vidsan-cli/vidsan/style"
)

func completionProviders(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return provider.Default().Tracker().Providers(), cobra.ShellCompDirectiveNoFileComp
}

// providerName returns the registered spelling of name.
func providerName(name string) string {
	registered, ok := lo.Find(provider.Default().Tracker().Providers(), func(p string) bool {
		return strings.EqualFold(p, strings.TrimSpace(name))
	})
	if !ok {
		handleErr(fmt.Errorf("%w: %s", domain.ErrUnknownProvider, name))
	}
	return registered
}

func init() {
	rootCmd.AddCommand(domainCmd)
}

var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Inspect and refresh the addresses of providers that relocate",
}

func printState(cmd *cobra.Command, name string, s domain.State) {
	cmd.Printf("%s %s\n", icon.Get(icon.Globe), style.Bold(name))
	cmd.Printf("  %s %s\n", style.Faint("url:       "), style.Fg(color.Yellow)(s.BaseURL))
	cmd.Printf("  %s %s\n", style.Faint("phase:     "), s.Phase)
	cmd.Printf("  %s %s\n", style.Faint("transport: "), s.Mode)
	if s.Version != "" {
		cmd.Printf("  %s %s\n", style.Faint("version:   "), s.Version)
	}
	if s.Logo != "" {
		cmd.Printf("  %s %s\n", style.Faint("logo:      "), s.Logo)
	}
}

func init() {
	domainCmd.AddCommand(domainShowCmd)
	domainShowCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
}

var domainShowCmd = &cobra.Command{
	Use:               "show [provider...]",
	Short:             "Show the known address of providers without contacting them",
	ValidArgsFunction: completionProviders,
	Run: func(cmd *cobra.Command, args []string) {
		tracker := provider.Default().Tracker()
		names := args
		if len(names) == 0 {
			names = tracker.Providers()
		}

		states := make(map[string]domain.State, len(names))
		names = lo.Map(names, func(name string, _ int) string { return providerName(name) })

		for _, name := range names {
			s, err := tracker.Peek(name)
			handleErr(err)
			states[name] = s
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(writeJSON(cmd.OutOrStdout(), states))
			return
		}

		for i, name := range names {
			printState(cmd, name, states[name])
			if i < len(names)-1 {
				cmd.Println()
			}
		}
	},
}

func init() {
	domainCmd.AddCommand(domainRefreshCmd)
}

var domainRefreshCmd = &cobra.Command{
	Use:               "refresh <provider>",
	Short:             "Discover the current address of a provider now",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionProviders,
	Run: func(cmd *cobra.Command, args []string) {
		name := providerName(args[0])
		s, err := ui.Spin("Discovering "+name, func() (domain.State, error) {
			return provider.Default().Tracker().Refresh(cmd.Context(), name)
		})
		handleErr(err)
		printState(cmd, name, s)
	},
}

func init() {
	domainCmd.AddCommand(domainPortalCmd)
}

var domainPortalCmd = &cobra.Command{
	Use:               "portal <provider> <url>",
	Short:             "Override the page a provider's address is read from",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completionProviders,
	Run: func(cmd *cobra.Command, args []string) {
		name := providerName(args[0])
		provider.Default().Tracker().SetPortal(name, args[1])
		fmt.Printf("%s %s portal set to %s\n", icon.Get(icon.Success), name, style.Fg(color.Yellow)(args[1]))
	},
}

func init() {
	domainCmd.AddCommand(domainAutoupdateCmd)
}

var domainAutoupdateCmd = &cobra.Command{
	Use:               "autoupdate <provider> <true|false>",
	Short:             "Toggle discovery on first use for a provider",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completionProviders,
	Run: func(cmd *cobra.Command, args []string) {
		enabled, err := strconv.ParseBool(args[1])
		handleErr(err)

		name := providerName(args[0])
		provider.Default().Tracker().SetAutoupdate(name, enabled)
		fmt.Printf("%s %s autoupdate %v\n", icon.Get(icon.Success), name, enabled)
	},
}

func init() {
	domainCmd.AddCommand(domainResetCmd)
}

var domainResetCmd = &cobra.Command{
	Use:               "reset <provider>",
	Short:             "Forget everything discovered about a provider",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionProviders,
	Run: func(cmd *cobra.Command, args []string) {
		name := providerName(args[0])
		handleErr(cache.Default().Clear(name))
		fmt.Printf("%s %s reset\n", icon.Get(icon.Success), name)
	},
}
