package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store usage statistics",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}
			ctx := context.Background()

			infos, err := mgr.ListSlots(ctx)
			if err != nil {
				fatal(err)
			}
			var totalEntries int
			var totalBytes int64
			for _, s := range infos {
				totalEntries += s.EntryCount
				totalBytes += s.SizeBytes
			}
			fmt.Printf("Active slots:  %d (%d entries, %d bytes)\n", len(infos), totalEntries, totalBytes)

			_, archStats, err := mgr.Archiver().ListArchived(ctx)
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Archived:      %d (%d bytes, avg ratio %.2f)\n",
				archStats.TotalArchives, archStats.TotalArchivedSize, archStats.AverageRatio)

			if recorder == nil {
				fmt.Println("\nNo stats database configured.")
				return
			}

			top, err := recorder.TopSlots(ctx, limit)
			if err != nil {
				fatal(err)
			}
			if len(top) > 0 {
				fmt.Println("\nMost accessed:")
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SLOT\tACCESSES\tLAST")
				for _, sa := range top {
					fmt.Fprintf(w, "%s\t%d\t%s\n", sa.Slot, sa.Accesses, sa.LastAccess.Format("2006-01-02 15:04"))
				}
				w.Flush()
			}

			searches, err := recorder.RecentSearches(ctx, limit)
			if err != nil {
				fatal(err)
			}
			if len(searches) > 0 {
				fmt.Println("\nRecent searches:")
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "QUERY\tRESULTS\tAT")
				for _, sr := range searches {
					fmt.Fprintf(w, "%s\t%d\t%s\n", sr.Query, sr.Results, sr.At.Format("2006-01-02 15:04"))
				}
				w.Flush()
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "rows per table")
	return cmd
}
