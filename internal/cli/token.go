package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	UserID string
	Email  string
	Role   string
	TTL    time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: `Mint a bearer token for local testing and operator scripts.

Example:
  plotctl token --user 8d7e6f3a-1c2b-4a5d-9e8f-0a1b2c3d4e5f --role staff`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := auth.Role(opts.Role)
			if !role.Valid() {
				return fmt.Errorf("invalid role %q", opts.Role)
			}
			if opts.UserID == "" {
				return fmt.Errorf("--user is required")
			}
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}

			token, err := auth.NewJWTManager(secret, opts.TTL).GenerateAccessToken(opts.UserID, opts.Email, role)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&opts.Role, "role", string(auth.RoleClient), "role: client, staff or admin")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")

	return cmd
}
