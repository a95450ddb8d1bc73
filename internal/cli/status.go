package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <kind> <id>",
		Short: "Show the displayed and stored status of one resource",
		Long: `Show how one resource appears to clients next to what its catalog stores.

Example:
  plotctl status garden-grid A-3-7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := catalog.NewRef(args[0], args[1])
			if err != nil {
				return fmt.Errorf("%s %s: %w", args[0], args[1], err)
			}

			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			registry := catalog.NewRegistry(
				catalog.NewLotRepository(pool),
				catalog.NewColumbariumRepository(pool),
				catalog.NewGridRepositories(pool),
			)
			svc := availability.NewService(registry, reservation.NewPgxRepository(pool), nil, 0)

			e, err := svc.ResourceStatus(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return printEntry(cmd, opts, e)
		},
	}
}

func printEntry(cmd *cobra.Command, opts *RootOptions, e *availability.Entry) error {
	if opts.Format == "json" {
		return printJSON(cmd.OutOrStdout(), e)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", e.Ref)
	fmt.Fprintf(out, "  shown:  %s\n", e.Status)
	fmt.Fprintf(out, "  stored: %s\n", e.StoredStatus)
	if e.ReservationID != "" {
		fmt.Fprintf(out, "  held by reservation %s\n", e.ReservationID)
	}
	return nil
}
