package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/internal/ui"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/provider"
	"github.com/vidsan-cli/vidsan/style"
)

func init() {
	rootCmd.AddCommand(serversCmd)

	serversCmd.Flags().BoolP("all", "a", false, "Ask every extractor that can list servers")
	serversCmd.Flags().BoolP("resolve", "r", false, "Resolve the first playable server")
	serversCmd.Flags().BoolP("pick", "p", false, "Choose a server interactively and resolve it")
	serversCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	serversCmd.Flags().StringP("output", "o", "", "Write the output to a file instead of stdout")
	serversCmd.MarkFlagsMutuallyExclusive("resolve", "pick")
}

var serversCmd = &cobra.Command{
	Use:   "servers [extractor] <type>",
	Short: "List the candidate servers for a movie or an episode",
	Long: `List the candidate servers an extractor offers for a movie or an episode.

Types:
  movie:<tmdb id>
  tv:<show id>:<season>:<episode>[:<episode id>]`,
	Example: `  vidsan servers PrimeSrc movie:603
  vidsan servers --resolve StreamingCommunity tv:1396:1:1:10
  vidsan servers --all movie:603`,
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("all")) {
			return cobra.ExactArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	ValidArgsFunction: completionExtractors,
	Run: func(cmd *cobra.Command, args []string) {
		t, err := media.ParseType(args[len(args)-1])
		handleErr(err)

		registry := provider.Default()
		w, closeOutput := output(cmd)
		defer closeOutput()

		var servers []media.Server
		if lo.Must(cmd.Flags().GetBool("all")) {
			groups, err := ui.Spin("Listing servers", func() ([]provider.Group, error) {
				return registry.ServersAll(cmd.Context(), t)
			})
			handleErr(err)

			if lo.Must(cmd.Flags().GetBool("json")) && !resolving(cmd) {
				handleErr(writeJSON(w, groupsJSON(groups)))
				return
			}
			if !resolving(cmd) {
				printGroups(w, groups)
				return
			}
			servers = lo.FlatMap(groups, func(g provider.Group, _ int) []media.Server { return g.Servers })
		} else {
			servers, err = ui.Spin("Listing servers", func() ([]media.Server, error) {
				return registry.Servers(cmd.Context(), args[0], t)
			})
			handleErr(err)

			if !resolving(cmd) {
				if lo.Must(cmd.Flags().GetBool("json")) {
					handleErr(writeJSON(w, servers))
				} else {
					printServers(w, servers)
				}
				return
			}
		}

		if lo.Must(cmd.Flags().GetBool("pick")) {
			picked, err := pickServer(servers)
			handleErr(err)
			servers = []media.Server{picked}
		}

		type result struct {
			video  *media.Video
			server media.Server
		}
		res, err := ui.Spin("Resolving", func() (result, error) {
			video, server, err := registry.ExtractAny(cmd.Context(), servers)
			return result{video, server}, err
		})
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(writeJSON(w, struct {
				Server media.Server `json:"server"`
				Video  *media.Video `json:"video"`
			}{res.server, res.video}))
			return
		}
		fmt.Fprintf(w, "%s %s\n", icon.Get(icon.Server), style.Faint(res.server.String()))
		printVideo(w, res.video, true)
	},
}

func resolving(cmd *cobra.Command) bool {
	return lo.Must(cmd.Flags().GetBool("resolve")) || lo.Must(cmd.Flags().GetBool("pick"))
}

func pickServer(servers []media.Server) (media.Server, error) {
	if len(servers) == 0 {
		return media.Server{}, errs.ErrNoPlayableSource
	}
	if !ui.Interactive() {
		return media.Server{}, errors.New("--pick needs a terminal")
	}

	var index int
	err := survey.AskOne(&survey.Select{
		Message: "Server",
		Options: lo.Map(servers, func(s media.Server, _ int) string { return s.Name }),
	}, &index)
	if err != nil {
		return media.Server{}, err
	}
	return servers[index], nil
}

func printServers(w io.Writer, servers []media.Server) {
	for _, s := range servers {
		fmt.Fprintf(w, "%s %s %s\n", icon.Get(icon.Server), style.Bold(s.Name), style.Faint(s.Src))
	}
}

type groupJSON struct {
	Extractor string         `json:"extractor"`
	Servers   []media.Server `json:"servers"`
	Error     string         `json:"error,omitempty"`
}

func groupsJSON(groups []provider.Group) []groupJSON {
	return lo.Map(groups, func(g provider.Group, _ int) groupJSON {
		out := groupJSON{Extractor: g.Extractor, Servers: g.Servers}
		if g.Err != nil {
			out.Error = g.Err.Error()
		}
		return out
	})
}

func printGroups(w io.Writer, groups []provider.Group) {
	headerStyle := style.New().Foreground(color.HiBlue).Bold(true).Render
	for i, g := range groups {
		fmt.Fprintln(w, headerStyle(g.Extractor+":"))
		if g.Err != nil {
			fmt.Fprintf(w, "%s %s\n", icon.Get(icon.Fail), style.Fg(color.Red)(g.Err.Error()))
		} else {
			printServers(w, g.Servers)
		}
		if i < len(groups)-1 {
			fmt.Fprintln(w)
		}
	}
}
