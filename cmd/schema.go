package cmd

import (
	"path/filepath"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidsan-cli/vidsan/media"
)

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolP("servers", "s", false, "Generate the schema of server lists instead of videos")
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the structured output",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			name := t.Name()
			switch strings.ToLower(name) {
			case "video", "server", "subtitle", "headers":
				return filepath.Base(t.PkgPath()) + "." + name
			}
			return name
		}

		var schema *jsonschema.Schema
		if lo.Must(cmd.Flags().GetBool("servers")) {
			schema = reflector.Reflect([]media.Server{})
		} else {
			schema = reflector.Reflect(&media.Video{})
		}

		handleErr(writeJSON(cmd.OutOrStdout(), schema))
	},
}
