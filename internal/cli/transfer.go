package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/custody/internal/custody"
)

func newTransferCmd(opts *rootOptions) *cobra.Command {
	var req custody.Request

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Record a custody transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.openExisting()
			if err != nil {
				return err
			}
			defer database.Close()

			svc := &custody.Service{DB: database}
			rec, err := svc.Transfer(cmd.Context(), req)
			if err != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ %s\n", custody.Code(err))
				return err
			}

			w := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(w, "✓ Certificate %s issued\n", rec.Certificate())
			fmt.Fprintf(w, "  Equipment: %s\n", rec.EquipmentID)
			fmt.Fprintf(w, "  From:      %s\n", rec.IssuingUnit)
			fmt.Fprintf(w, "  To:        %s\n", rec.ReceivingUnit)
			fmt.Fprintf(w, "  Recorded:  %s\n", rec.RecordedAt.In(opts.cfg.Location()).Format("2006/01/02 15:04:05"))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.EquipmentID, "equipment", "e", "", "equipment id")
	f.StringVarP(&req.ReceivingUnit, "to", "t", "", "receiving unit")
	f.StringVar(&req.Details, "details", "", "reason for the transfer")
	f.StringVarP(&req.RecorderName, "recorder", "r", "", "name of the person recording the transfer")
	return cmd
}
