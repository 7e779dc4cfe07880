package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ytget/yt-web/internal/engine"
	"github.com/ytget/yt-web/internal/extract"
	"github.com/ytget/yt-web/internal/model"
)

func newProbeCommand(a *app) *cobra.Command {
	var cookieHeader string

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "List the formats a client could pick for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			eng := engine.New(s.GetYTDLPPath(), a.logger)
			adapter := extract.NewAdapter(eng, s.GetContainer(), s.GetProbeTimeout(), a.logger)

			result, err := adapter.Probe(cmd.Context(), args[0], model.CookiesFromHeader(cookieHeader))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title: %s\n", result.Title)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tEXT\tRESOLUTION\tSIZE")
			for _, f := range result.Formats {
				size := "-"
				if f.SizeBytes != nil {
					size = strconv.FormatInt(*f.SizeBytes, 10)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.FormatID, f.Container, f.Resolution, size)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&cookieHeader, "cookies", "", "Cookie header forwarded to yt-dlp")
	return cmd
}
