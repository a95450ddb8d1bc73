package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/storage"
)

// NewPurgeCommand creates the purge-proofs command.
func NewPurgeCommand(opts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-proofs",
		Short: "Delete uploaded proofs that no reservation references",
		Long: `Delete proof-of-payment uploads left behind when a reservation was never
created or was rolled back, together with their stored blobs.

Example:
  plotctl purge-proofs --older-than 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			store, err := storage.NewLocalStorage(cfg.StoragePath)
			if err != nil {
				return err
			}

			n, err := file.NewService(file.NewRepository(pool), store).PurgeOrphans(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int{"purged": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d orphaned proof(s)\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of an unreferenced upload")

	return cmd
}
