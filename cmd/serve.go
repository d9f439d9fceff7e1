package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidsan-cli/vidsan/api"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/provider"
	"github.com/vidsan-cli/vidsan/style"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "Address to listen on")
	lo.Must0(viper.BindPFlag(key.ServeAddress, serveCmd.Flags().Lookup("address")))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolver over HTTP for local players",
	Long: `Serve the resolver over HTTP for local players.

Endpoints:
  GET /api/resolve?link=<link>
  GET /api/extractors
  GET /api/servers/<extractor>?type=<type>
  GET /api/servers?type=<type>`,
	Run: func(cmd *cobra.Command, args []string) {
		addr := viper.GetString(key.ServeAddress)
		handler := api.New(provider.Default(), api.Options{
			Origins: viper.GetStringSlice(key.ServeCorsOrigins),
		})

		fmt.Printf("%s listening on %s\n", icon.Get(icon.Server), style.Fg(color.Yellow)("http://"+addr))
		handleErr(api.Serve(cmd.Context(), addr, handler))
	},
}
