// Package cmd implements the command-line interface for vidsan.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/constant"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/log"
	"github.com/vidsan-cli/vidsan/style"
	"github.com/vidsan-cli/vidsan/util"
	"github.com/vidsan-cli/vidsan/version"
	"github.com/vidsan-cli/vidsan/where"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().StringP("language", "L", "", "Preferred audio language (en, it, fr)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("language", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"en", "it", "fr"}, cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.ExtractorsLanguage, rootCmd.PersistentFlags().Lookup("language")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	go func() {
		_ = util.Delete(where.Temp())
	}()
}

var rootCmd = &cobra.Command{
	Use:   constant.Vidsan,
	Short: "Resolve embed links into playable video streams",
	Long: constant.Banner + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Resolve embed links into playable video streams"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}
		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err == nil {
		return
	}

	log.Error(err)

	msg := strings.Trim(err.Error(), " \n")
	if width, _, sizeErr := util.TerminalSize(); sizeErr == nil && width > 4 {
		msg = wordwrap.String(msg, width-4)
	}
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), msg)
	os.Exit(1)
}
