package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memvault/internal/storage"
)

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all slots as YAML",
		Long:  "Export every active slot, decompressed, as a YAML document on stdout (or to a file with -o).",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			doc, err := mgr.ExportAll(context.Background())
			if err != nil {
				fatal(err)
			}
			data, err := storage.MarshalExport(doc)
			if err != nil {
				fatal(err)
			}

			if output == "" {
				os.Stdout.Write(data)
				return
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				fatal(err)
			}
			fmt.Printf("Exported %d slots to %s\n", len(doc.Slots), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func importCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import slots from a YAML export",
		Long:  "Import slots from a YAML export document (a file argument, or stdin).",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				fatal(err)
			}

			doc, err := storage.UnmarshalExport(data)
			if err != nil {
				fatal(err)
			}

			cfg := loadConfig()
			mgr, recorder := openManager(cfg)
			if recorder != nil {
				defer recorder.Close()
			}

			result, err := mgr.Import(context.Background(), doc, overwrite)
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Imported %d slots, skipped %d\n", result.Imported, result.Skipped)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace slots that already exist")
	return cmd
}
