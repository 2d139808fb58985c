package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boopesh07/VideoToShorts/internal/catalog"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the generated shorts in the catalog",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

// runList reads the catalog directly: SQLite in WAL mode allows concurrent
// readers, so this works while the daemon is running.
func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := catalog.Open(cfg.Paths.ShortsDir)
	if err != nil {
		return err
	}
	defer store.Close()

	shorts, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(shorts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no shorts in catalog")
		return nil
	}
	renderShorts(cmd, shorts)
	return nil
}
