package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"ls"},
	Short:   "List downloaded songs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.library.List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintf(out, "No songs in %s\n", a.library.Dir())
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tSIZE\tDURATION\tMODIFIED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				truncate(e.Filename, 60),
				e.SizeHuman,
				formatDuration(e.DurationSeconds),
				e.Modified.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm [filename]",
	Short: "Delete a downloaded song",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.library.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}
