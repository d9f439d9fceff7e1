package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidsan-cli/vidsan/auth"
	"github.com/vidsan-cli/vidsan/color"
	"github.com/vidsan-cli/vidsan/config"
	"github.com/vidsan-cli/vidsan/icon"
	"github.com/vidsan-cli/vidsan/internal/ui"
	"github.com/vidsan-cli/vidsan/style"
)

func secretKeys() []string {
	return lo.Filter(lo.Keys(config.Default), func(k string, _ int) bool {
		return strings.HasPrefix(k, "secrets.")
	})
}

func secretKey(k string) string {
	if !strings.HasPrefix(k, "secrets.") {
		k = "secrets." + k
	}
	if !lo.Contains(secretKeys(), k) {
		handleErr(errUnknownKey(k))
	}
	return k
}

func completionSecrets(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return secretKeys(), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(secretCmd)
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Store upstream passphrases in the system keyring",
	Long:  "Store upstream passphrases in the system keyring. Keyring values take precedence over the config file.",
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
}

var secretSetCmd = &cobra.Command{
	Use:               "set <key> [value]",
	Short:             "Store a secret, prompting for it when no value is given",
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completionSecrets,
	Run: func(cmd *cobra.Command, args []string) {
		k := secretKey(args[0])

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			if !ui.Interactive() {
				handleErr(errors.New("value is required outside a terminal"))
			}
			handleErr(survey.AskOne(&survey.Password{Message: k}, &value, survey.WithValidator(survey.Required)))
		}

		handleErr(auth.SetSecret(k, value))
		fmt.Printf("%s stored %s\n", icon.Get(icon.Key), style.Fg(color.Purple)(k))
	},
}

func init() {
	secretCmd.AddCommand(secretGetCmd)
}

var secretGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print a stored secret",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSecrets,
	Run: func(cmd *cobra.Command, args []string) {
		value, err := auth.GetSecret(secretKey(args[0]))
		if errors.Is(err, auth.ErrNotFound) {
			handleErr(fmt.Errorf("%s is not in the keyring", args[0]))
		}
		handleErr(err)
		fmt.Println(value)
	},
}

func init() {
	secretCmd.AddCommand(secretDeleteCmd)
}

var secretDeleteCmd = &cobra.Command{
	Use:               "delete <key>",
	Short:             "Remove a secret from the keyring",
	Aliases:           []string{"remove"},
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionSecrets,
	Run: func(cmd *cobra.Command, args []string) {
		k := secretKey(args[0])
		handleErr(auth.DeleteSecret(k))
		fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Purple)(k))
	},
}
