package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ytget/yt-web/internal/cookies"
)

func newCookiesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Manage the stored cookie records",
	}

	store := func() *cookies.Store {
		return cookies.NewStore(a.settings.GetCookieFile(), a.logger)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print stored records with their index",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				records, err := store().List()
				if err != nil {
					return err
				}
				for i, r := range records {
					fmt.Fprintf(cmd.OutOrStdout(), "[%d]\n%s\n", i, r)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <blob>",
			Short: "Append a record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return store().Append(args[0])
			},
		},
		&cobra.Command{
			Use:   "delete <index>",
			Short: "Delete the record at index; later records shift down",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("index must be a number: %w", err)
				}
				return store().Delete(index)
			},
		},
	)
	return cmd
}
