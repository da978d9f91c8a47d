package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/custody/internal/store"
)

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	var filter store.TransferFilter

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print the transfer ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.openExisting()
			if err != nil {
				return err
			}
			defer database.Close()

			recs, err := store.ListTransfers(cmd.Context(), database, filter)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transfers recorded.")
				return nil
			}

			loc := opts.cfg.Location()
			cert := color.New(color.FgCyan)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NO\tRECORDED\tEQUIPMENT\tFROM\tTO\tRECORDER\tDETAILS")
			for _, rec := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					cert.Sprint(rec.Certificate()),
					rec.RecordedAt.In(loc).Format("2006/01/02 15:04"),
					rec.EquipmentID, rec.IssuingUnit, rec.ReceivingUnit, rec.RecorderName, rec.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&filter.EquipmentID, "equipment", "e", "", "only transfers of this equipment")
	cmd.Flags().StringVarP(&filter.Unit, "unit", "u", "", "only transfers from or to this unit")
	return cmd
}
