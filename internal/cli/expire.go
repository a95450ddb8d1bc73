package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
	"github.com/nekogravitycat/plot-booking-backend/internal/expiry"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

// ExpireOptions holds flags for the expire-pending command.
type ExpireOptions struct {
	*RootOptions
	OlderThan time.Duration
	DryRun    bool
}

// NewExpireCommand creates the expire-pending command.
func NewExpireCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpireOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expire-pending",
		Short: "Cancel pending reservations that were never confirmed",
		Long: `Cancel pending reservations older than --older-than that never had a
confirmation delivered, freeing their resources.

Example:
  plotctl expire-pending --older-than 72h --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.OlderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			var publisher events.Publisher = events.Nop{}
			if cfg.RedisAddr != "" {
				if rdb := availability.NewRedisClient(cmd.Context(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
					defer rdb.Close()
					publisher = availability.NewInvalidator(availability.NewRedisCache(rdb))
				}
			}

			registry := catalog.NewRegistry(
				catalog.NewLotRepository(pool),
				catalog.NewColumbariumRepository(pool),
				catalog.NewGridRepositories(pool),
			)
			repo := reservation.NewPgxRepository(pool)
			sweeper := expiry.NewSweeper(repo, reservation.NewService(repo, registry, publisher), opts.OlderThan)

			res, err := sweeper.Expire(cmd.Context(), opts.OlderThan, opts.DryRun)
			if err != nil {
				return err
			}
			return printExpireResult(cmd, opts, res)
		},
	}

	cmd.Flags().DurationVar(&opts.OlderThan, "older-than", 72*time.Hour, "minimum age of a pending reservation")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "only list what would be cancelled")

	return cmd
}

func printExpireResult(cmd *cobra.Command, opts *ExpireOptions, res expiry.Result) error {
	if opts.Format == "json" {
		return printJSON(cmd.OutOrStdout(), res)
	}
	verb := "cancelled"
	if res.DryRun {
		verb = "would cancel"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d reservation(s)\n", verb, len(res.Expired))
	for _, id := range res.Expired {
		fmt.Fprintf(out, "  %s\n", id)
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "skipped %d reservation(s) changed since listing\n", len(res.Skipped))
	}
	return nil
}
