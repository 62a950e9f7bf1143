package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maruel/sheetgrid/internal/export"
	"github.com/maruel/sheetgrid/internal/grid"
	"github.com/maruel/sheetgrid/internal/server/handlers"
	"github.com/maruel/sheetgrid/internal/storage"
)

var (
	exportOutput string
	exportQuery  string
	exportSheet  string
)

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create missing column indexes",
	Long:  `Create every index that the columns of every table need. Existing indexes are left alone.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		svc := storage.NewServices(db)
		n, err := storage.ReconcileIndexes(ctx, svc.Columns, svc.Indexes)
		if err != nil {
			return err
		}
		names, err := svc.Indexes.ListIndexes(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Checked %d columns, %d column indexes present\n", n, len(names))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <tableID>",
	Short: "Export a table to an XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var q handlers.ExportQuery
		if exportQuery != "" {
			if err := json.Unmarshal([]byte(exportQuery), &q); err != nil {
				return fmt.Errorf("invalid --query: %w", err)
			}
		}
		ctx := cmd.Context()
		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		svc := storage.NewServices(db)
		tableID := args[0]
		cols, err := svc.Columns.GetColumns(ctx, tableID)
		if err != nil {
			return err
		}
		if _, err := grid.Compile(tableID, cols, q.Filters, q.Sort); err != nil {
			return err
		}
		out := exportOutput
		if out == "" {
			out = tableID + ".xlsx"
		}
		f, err := os.Create(out) //nolint:gosec // Operator-specified output path
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		n, err := export.WriteXLSX(ctx, w, svc.Windows, tableID, cols, export.Options{Filters: q.Filters, Sort: q.Sort, SheetName: exportSheet})
		if err == nil {
			err = w.Flush()
		}
		if err2 := f.Close(); err == nil {
			err = err2
		}
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		fmt.Printf("Exported %d rows to %s\n", n, out)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the API bodies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "  ")
		return e.Encode(handlers.BuildSchema())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version, goVersion, revision, dirty := getBuildInfo()
		fmt.Printf("sheetgrid %s\n", version)
		fmt.Printf("  Go version: %s\n", goVersion)
		fmt.Printf("  Revision:   %s\n", revision)
		if dirty {
			fmt.Printf("  Modified:   true\n")
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: <tableID>.xlsx)")
	exportCmd.Flags().StringVar(&exportQuery, "query", "", `Filters and sort as JSON, e.g. {"filters":[...],"sort":[...]}`)
	exportCmd.Flags().StringVar(&exportSheet, "sheet", "", "Sheet name (default: Sheet1)")

	rootCmd.AddCommand(ensureIndexesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
