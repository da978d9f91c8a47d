package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/custody/internal/export"
	"github.com/erazemk/custody/internal/store"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.openExisting()
			if err != nil {
				return err
			}
			defer database.Close()

			recs, err := store.ListTransfers(cmd.Context(), database, store.TransferFilter{})
			if err != nil {
				return err
			}

			loc := opts.cfg.Location()
			if out == "" {
				out = export.FileName(time.Now(), loc)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := export.WriteLedger(f, recs, loc); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Exported %d transfers to %s\n", len(recs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default 暗号機器_管理記録簿_<date>.xlsx)")
	return cmd
}
