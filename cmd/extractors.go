package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/extractor"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/internal/scraper"
	"github.com/vidsan-cli/vidsan/network"
	"github.com/vidsan-cli/vidsan/provider"
	"github.com/vidsan-cli/vidsan/provider/custom"
	"github.com/vidsan-cli/vidsan/style"
	"github.com/vidsan-cli/vidsan/util"
	"github.com/vidsan-cli/vidsan/where"
)

func init() {
	rootCmd.AddCommand(extractorsCmd)
}

var extractorsCmd = &cobra.Command{
	Use:     "extractors",
	Aliases: []string{"ext"},
	Short:   "Manage builtin and custom Lua extractors",
}

func completionExtractors(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Map(provider.Default().Extractors(), func(e extractor.Extractor, _ int) string {
		return e.Identity().Name
	}), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	extractorsCmd.AddCommand(extractorsListCmd)

	extractorsListCmd.Flags().BoolP("raw", "r", false, "Suppress headers and hosts in the output")
	extractorsListCmd.Flags().BoolP("custom", "c", false, "Display only custom Lua extractors")
	extractorsListCmd.Flags().BoolP("builtin", "b", false, "Display only builtin extractors")
	extractorsListCmd.Flags().StringP("filter", "f", "", "Fuzzy filter by name or host")

	extractorsListCmd.MarkFlagsMutuallyExclusive("custom", "builtin")
	extractorsListCmd.SetOut(os.Stdout)
}

var extractorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Display every registered extractor with its hosts",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			raw     = lo.Must(cmd.Flags().GetBool("raw"))
			filter  = strings.ToLower(lo.Must(cmd.Flags().GetString("filter")))
			all     = provider.Default().Extractors()
			builtin []extractor.Extractor
			customs []extractor.Extractor
		)

		for _, e := range all {
			if filter != "" && !matchesFilter(e.Identity(), filter) {
				continue
			}
			if _, ok := e.(*custom.Extractor); ok {
				customs = append(customs, e)
			} else {
				builtin = append(builtin, e)
			}
		}

		headerStyle := style.New().Foreground(color.HiBlue).Bold(true).Render
		list := func(title string, i icon.Icon, list []extractor.Extractor) {
			if !raw {
				cmd.Println(headerStyle(title + ":"))
			}
			for _, e := range list {
				id := e.Identity()
				if raw {
					cmd.Println(id.Name)
					continue
				}

				_, lists := e.(extractor.ServerLister)
				extra := ""
				if lists {
					extra = " " + style.Fg(color.Cyan)(icon.Get(icon.Server))
				}
				cmd.Printf("%s %s%s %s\n", icon.Get(i), style.Bold(id.Name), extra, style.Faint(strings.Join(id.Hosts(), ", ")))
			}
		}

		switch {
		case lo.Must(cmd.Flags().GetBool("builtin")):
			list("Builtin", icon.Go, builtin)
		case lo.Must(cmd.Flags().GetBool("custom")):
			list("Custom", icon.Lua, customs)
		default:
			list("Builtin", icon.Go, builtin)
			if !raw {
				cmd.Println()
			}
			list("Custom", icon.Lua, customs)
		}
	},
}

func matchesFilter(id extractor.Identity, filter string) bool {
	if fuzzy.MatchFold(filter, id.Name) {
		return true
	}
	return lo.ContainsBy(id.Hosts(), func(host string) bool {
		return fuzzy.MatchFold(filter, host)
	})
}

func init() {
	extractorsCmd.AddCommand(extractorsNewCmd)

	extractorsNewCmd.Flags().StringP("name", "n", "", "Name of the new extractor")
	extractorsNewCmd.Flags().StringP("url", "u", "", "Main URL of the host it resolves")

	lo.Must0(extractorsNewCmd.MarkFlagRequired("name"))
	lo.Must0(extractorsNewCmd.MarkFlagRequired("url"))
}

var extractorsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Scaffold a Lua extractor in the extractors directory",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SetOut(os.Stdout)

		author := "Anonymous"
		if usr, err := user.Current(); err == nil {
			author = usr.Username
		}

		s := struct {
			Name, URL, Author               string
			NameVar, MainURLVar, AliasesVar string
			ExtractFn                       string
		}{
			Name:       lo.Must(cmd.Flags().GetString("name")),
			URL:        lo.Must(cmd.Flags().GetString("url")),
			Author:     author,
			NameVar:    constant.ExtractorNameVar,
			MainURLVar: constant.ExtractorMainURLVar,
			AliasesVar: constant.ExtractorAliasesVar,
			ExtractFn:  constant.ExtractFn,
		}

		if extractor.Host(s.URL) == "" {
			handleErr(fmt.Errorf("invalid url %q", s.URL))
		}

		tmpl, err := template.New("extractor").Funcs(template.FuncMap{
			"repeat": strings.Repeat,
			"plus":   func(a, b int) int { return a + b },
			"max":    util.Max[int],
		}).Parse(constant.ExtractorTemplate)
		handleErr(err)

		target := filepath.Join(where.Extractors(), util.SanitizeFilename(s.Name)+".lua")
		f, err := filesystem.API().Create(target)
		handleErr(err)
		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))
		cmd.Println(target)
	},
}

func init() {
	extractorsCmd.AddCommand(extractorsInstallCmd)
}

var extractorsInstallCmd = &cobra.Command{
	Use:   "install <url>...",
	Short: "Download Lua extractors into the extractors directory",
	Long:  "Download Lua extractors into the extractors directory. Files whose content did not change are left untouched.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, raw := range args {
			u, err := url.Parse(raw)
			if err != nil || path.Ext(u.Path) != ".lua" {
				handleErr(fmt.Errorf("not a lua script: %s", raw))
			}

			target := filepath.Join(where.Extractors(), path.Base(u.Path))
			changed, err := scraper.Install(context.Background(), network.Default(), raw, target)
			handleErr(err)

			if changed {
				fmt.Printf("%s installed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(target))
			} else {
				fmt.Printf("%s %s is up to date\n", icon.Get(icon.Info), style.Fg(color.Yellow)(target))
			}
		}
	},
}

func init() {
	extractorsCmd.AddCommand(extractorsRemoveCmd)

	extractorsRemoveCmd.Flags().StringArrayP("name", "n", []string{}, "File name of the custom extractor(s) to remove, without .lua")
	lo.Must0(extractorsRemoveCmd.RegisterFlagCompletionFunc("name", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		files, err := filesystem.API().ReadDir(where.Extractors())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		return lo.FilterMap(files, func(item os.FileInfo, _ int) (string, bool) {
			if filepath.Ext(item.Name()) != ".lua" {
				return "", false
			}
			return util.FileStem(item.Name()), true
		}), cobra.ShellCompDirectiveNoFileComp
	}))
}

var extractorsRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove custom Lua extractors",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range lo.Must(cmd.Flags().GetStringArray("name")) {
			target := filepath.Join(where.Extractors(), name+".lua")
			handleErr(filesystem.API().Remove(target))
			scraper.Forget(target)
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(name))
		}
	},
}
