package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Resolve a query to a single track without downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		explain, _ := cmd.Flags().GetBool("explain")

		a, err := newApplication(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if explain {
			scored, err := a.resolver.Explain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tDURATION\tUPLOADER\tTITLE")
			for _, s := range scored {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					s.Score,
					formatDuration(s.Candidate.DurationSeconds),
					truncate(s.Candidate.UploaderName, 24),
					truncate(s.Candidate.Title, 60))
			}
			return w.Flush()
		}

		track, err := a.resolver.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Title:    %s\n", track.Title)
		fmt.Fprintf(out, "Artist:   %s\n", track.Artist)
		if track.Album != "" {
			fmt.Fprintf(out, "Album:    %s\n", track.Album)
		}
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(track.DurationSeconds))
		fmt.Fprintf(out, "URL:      %s\n", track.SourceURL)
		fmt.Fprintf(out, "Source:   %s\n", track.ProviderName)
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [query]",
	Short: "List search candidates for a partial query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApplication(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		candidates, err := a.resolver.SearchMulti(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DURATION\tUPLOADER\tTITLE\tURL")
		for _, c := range candidates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				formatDuration(c.DurationSeconds),
				truncate(c.UploaderName, 24),
				truncate(c.Title, 60),
				c.SourceURL)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().Bool("explain", false, "Show every media search candidate with its ranking score")
	suggestCmd.Flags().IntP("limit", "n", 0, "Maximum number of suggestions (default from config)")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
