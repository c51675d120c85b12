package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage memory slots",
	}
	cmd.AddCommand(slotsListCmd())
	cmd.AddCommand(slotsDeleteCmd())
	cmd.AddCommand(slotsTagCmd())
	cmd.AddCommand(slotsGroupCmd())
	cmd.AddCommand(slotsCompressCmd())
	return cmd
}

func slotsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all memory slots",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			infos, err := mgr.ListSlots(context.Background())
			if err != nil {
				fatal(err)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(infos, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(infos) == 0 {
				fmt.Println("No memory slots.")
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tENTRIES\tSIZE\tGROUP\tTAGS\tUPDATED")
			for _, s := range infos {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
					s.SlotName, s.EntryCount, s.SizeBytes, s.GroupPath,
					strings.Join(s.Tags, ","), s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func slotsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [slot]",
		Short: "Delete a memory slot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			deleted, err := mgr.DeleteSlot(context.Background(), args[0])
			if err != nil {
				fatal(err)
			}
			if deleted {
				fmt.Printf("Deleted %q\n", args[0])
			} else {
				fmt.Printf("No slot named %q\n", args[0])
			}
		},
	}
}

func slotsTagCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "tag [slot] [tags...]",
		Short: "Add or remove tags on a slot",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			var err error
			if remove {
				_, err = mgr.UntagSlot(context.Background(), args[0], args[1:])
			} else {
				_, err = mgr.TagSlot(context.Background(), args[0], args[1:])
			}
			if err != nil {
				fatal(err)
			}

			slot, err := mgr.ReadMemory(context.Background(), args[0])
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Tags for %q: %s\n", slot.SlotName, strings.Join(slot.Tags, ", "))
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the tags instead of adding them")
	return cmd
}

func slotsGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group [slot] [group-path]",
		Short: "Assign a slot to a hierarchical group (empty path clears it)",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			group := ""
			if len(args) == 2 {
				group = args[1]
			}
			slot, err := mgr.SetGroup(context.Background(), args[0], group)
			if err != nil {
				fatal(err)
			}
			if slot.GroupPath == "" {
				fmt.Printf("Cleared group on %q\n", slot.SlotName)
			} else {
				fmt.Printf("Moved %q into %s\n", slot.SlotName, slot.GroupPath)
			}
		},
	}
}

func slotsCompressCmd() *cobra.Command {
	var (
		force      bool
		decompress bool
	)
	cmd := &cobra.Command{
		Use:   "compress [slot]",
		Short: "Compress (or decompress) the entries of a slot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			var err error
			var result interface{}
			if decompress {
				result, err = mgr.DecompressSlot(context.Background(), args[0])
			} else {
				result, err = mgr.CompressSlot(context.Background(), args[0], force)
			}
			if err != nil {
				fatal(err)
			}
			data, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(data))
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-compress entries that are already compressed")
	cmd.Flags().BoolVar(&decompress, "decompress", false, "decompress instead of compress")
	return cmd
}
