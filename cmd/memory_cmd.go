package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memvault/internal/memory"
)

func saveCmd() *cobra.Command {
	var entryType string
	cmd := &cobra.Command{
		Use:   "save [slot] [content...]",
		Short: "Save content into a memory slot",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			slot, err := mgr.SaveMemory(context.Background(), args[0], strings.Join(args[1:], " "), entryType)
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Saved %q (%d entries)\n", slot.SlotName, len(slot.Entries))
		},
	}
	cmd.Flags().StringVar(&entryType, "type", "manual_save", "entry type: manual_save or auto_summary")
	return cmd
}

func readCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "read [slot]",
		Short: "Read a memory slot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			slot, err := mgr.ReadMemory(context.Background(), args[0])
			if err != nil {
				fatal(err)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(slot, "", "  ")
				fmt.Println(string(data))
				return
			}

			fmt.Printf("Slot: %s\n", slot.SlotName)
			if len(slot.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(slot.Tags, ", "))
			}
			if slot.GroupPath != "" {
				fmt.Printf("Group: %s\n", slot.GroupPath)
			}
			for i, e := range slot.Entries {
				fmt.Printf("\n[%d] %s (%s)\n%s\n", i, e.Type, e.Timestamp.Format(time.RFC3339), e.Content)
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		maxResults    int
		includeTags   []string
		excludeTags   []string
		useRegex      bool
		caseSensitive bool
		jsonOutput    bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search all memory slots",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			results, err := mgr.SearchMemory(context.Background(), memory.SearchQuery{
				Query:         args[0],
				IncludeTags:   includeTags,
				ExcludeTags:   excludeTags,
				MaxResults:    maxResults,
				CaseSensitive: caseSensitive,
				UseRegex:      useRegex,
			})
			if err != nil {
				fatal(err)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(results, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(results) == 0 {
				fmt.Println("No results.")
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tSLOT\tMATCH\tSNIPPET")
			for _, r := range results {
				snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
				if len(snippet) > 60 {
					snippet = snippet[:60] + "..."
				}
				fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", r.RelevanceScore, r.SlotName, r.MatchType, snippet)
			}
			w.Flush()
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max", "n", 10, "maximum results")
	cmd.Flags().StringSliceVar(&includeTags, "tag", nil, "only slots with at least one of these tags")
	cmd.Flags().StringSliceVar(&excludeTags, "not-tag", nil, "exclude slots with any of these tags")
	cmd.Flags().BoolVar(&useRegex, "regex", false, "treat query as a regular expression")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match case exactly")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
