package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Fetch the listing and its posts into the snapshot database",
		Long: "build reads the first listing page and every post it links to from the CMS " +
			"and writes them to the SQLite snapshot, so the site can serve without the CMS.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			src, err := spacetraveling.NewPostSource(cfg.Prismic)
			if err != nil {
				return err
			}
			store, err := spacetraveling.NewStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := spacetraveling.Snapshot(cmd.Context(), src, store, log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapshot: %d listed, %d posts saved", res.ListingItems, res.Posts)
			if len(res.Missing) > 0 {
				fmt.Fprintf(out, ", %d missing", len(res.Missing))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
