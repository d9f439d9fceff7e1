package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/filesystem"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/internal/ui"
	"github.com/vidsan-cli/vidsan/media"
	"github.com/vidsan-cli/vidsan/provider"
	"github.com/vidsan-cli/vidsan/style"
	"github.com/vidsan-cli/vidsan/util"
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().BoolP("json", "j", false, "Format the video as a JSON object")
	resolveCmd.Flags().BoolP("headers", "H", false, "Print the headers required to fetch the stream")
	resolveCmd.Flags().StringP("output", "o", "", "Write the output to a file instead of stdout")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <link>",
	Short: "Resolve an embed link into a playable stream",
	Example: `  vidsan resolve https://voe.sx/e/abc123
  vidsan resolve --json "https://vixcloud.co/embed/12345?language=it"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		video, err := ui.Spin("Resolving "+args[0], func() (*media.Video, error) {
			return provider.Default().Extract(cmd.Context(), args[0])
		})
		handleErr(err)

		w, closeOutput := output(cmd)
		defer closeOutput()

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(writeJSON(w, video))
			return
		}
		printVideo(w, video, lo.Must(cmd.Flags().GetBool("headers")))
	},
}

// output returns the writer selected by the --output flag.
func output(cmd *cobra.Command) (io.Writer, func()) {
	path := lo.Must(cmd.Flags().GetString("output"))
	if path == "" {
		return os.Stdout, func() {}
	}

	f, err := filesystem.API().Create(path)
	handleErr(err)
	return f, func() { util.Ignore(f.Close) }
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printVideo(w io.Writer, video *media.Video, headers bool) {
	fmt.Fprintln(w, video.Source)

	if !headers {
		return
	}

	for _, h := range video.Headers {
		fmt.Fprintf(w, "%s %s\n", style.Fg(color.Purple)(h.Name+":"), h.Value)
	}
	for _, s := range video.Subtitles {
		fmt.Fprintf(w, "%s %s %s\n", icon.Get(icon.Link), style.Bold(s.Label), s.File)
	}
}
