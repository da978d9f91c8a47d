package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/custody/internal/store"
)

// feed is the provisioning file format. A bare list of entries is accepted too.
//
//	equipment:
//	  - id: E1
//	    type: AM-38N
//	    serial: S-0001
//	    custodian: 1師団
type feed struct {
	Equipment []store.ProvisionRequest `yaml:"equipment"`
}

func parseFeed(buf []byte) ([]store.ProvisionRequest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	if doc.Content[0].Kind == yaml.SequenceNode {
		var list []store.ProvisionRequest
		err := doc.Content[0].Decode(&list)
		return list, err
	}
	var f feed
	err := doc.Content[0].Decode(&f)
	return f.Equipment, err
}

func newProvisionCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Register equipment from a YAML feed",
		Long: `Register new equipment units with their initial custodian. The whole feed
is applied in one transaction: if any entry is rejected nothing is registered.
Provisioning never writes the transfer ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading feed: %w", err)
			}
			entries, err := parseFeed(buf)
			if err != nil {
				return fmt.Errorf("parsing feed %s: %w", file, err)
			}
			if len(entries) == 0 {
				return fmt.Errorf("feed %s lists no equipment", file)
			}

			database, err := opts.openExisting()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := provisionAll(cmd.Context(), database, entries); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Provisioned %d equipment units\n", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "provisioning feed (YAML)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func provisionAll(ctx context.Context, database *sql.DB, reqs []store.ProvisionRequest) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning provisioning: %w", err)
	}
	defer tx.Rollback()

	for i, req := range reqs {
		if _, err := store.ProvisionEquipment(ctx, tx, req); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i+1, req.ID, err)
		}
	}
	return tx.Commit()
}
