package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive slots and manage the archive ledger",
	}
	cmd.AddCommand(archiveRunCmd())
	cmd.AddCommand(archiveRestoreCmd())
	cmd.AddCommand(archiveListCmd())
	cmd.AddCommand(archiveCandidatesCmd())
	return cmd
}

func archiveRunCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "run [slot]",
		Short: "Move a slot into the archive",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			result, err := mgr.ArchiveSlot(context.Background(), args[0], reason)
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Archived %q (%d entries, %.2fx compression)\n",
				result.Slot, result.EntryCount, result.CompressionRatio)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the slot is being archived")
	return cmd
}

func archiveRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [slot]",
		Short: "Restore an archived slot to active storage",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			slot, err := mgr.RestoreFromArchive(context.Background(), args[0])
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Restored %q (%d entries)\n", slot.SlotName, len(slot.Entries))
		},
	}
}

func archiveListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived slots",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			entries, st, err := mgr.Archiver().ListArchived(context.Background())
			if err != nil {
				fatal(err)
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].SlotName < entries[j].SlotName })

			if jsonOutput {
				data, _ := json.MarshalIndent(map[string]interface{}{
					"entries": entries,
					"stats":   st,
				}, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(entries) == 0 {
				fmt.Println("Archive is empty.")
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tENTRIES\tSIZE\tRATIO\tARCHIVED\tREASON")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%s\t%s\n",
					e.SlotName, e.EntryCount, e.ArchivedSize, e.CompressionRatio,
					e.ArchivedAt.Format("2006-01-02"), e.Reason)
			}
			w.Flush()
			fmt.Printf("\n%d archives, %d bytes (avg ratio %.2f)\n",
				st.TotalArchives, st.TotalArchivedSize, st.AverageRatio)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func archiveCandidatesCmd() *cobra.Command {
	var (
		daysInactive int
		minEntries   int
	)
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List slots eligible for archival",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			candidates, err := mgr.ArchiveCandidates(context.Background(), daysInactive, minEntries)
			if err != nil {
				fatal(err)
			}
			if len(candidates) == 0 {
				fmt.Println("No candidates.")
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tENTRIES\tINACTIVE\tLAST UPDATED")
			for _, c := range candidates {
				fmt.Fprintf(w, "%s\t%d\t%dd\t%s\n",
					c.SlotName, c.EntryCount, c.DaysInactive, c.UpdatedAt.Format("2006-01-02"))
			}
			w.Flush()
		},
	}
	cmd.Flags().IntVar(&daysInactive, "days", 30, "minimum days since last update")
	cmd.Flags().IntVar(&minEntries, "min-entries", 1, "minimum entry count")
	return cmd
}
