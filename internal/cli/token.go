package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Conceptual-Machines/bachgen/internal/middleware"
	"github.com/Conceptual-Machines/bachgen/internal/models"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Sign an API token for a server running with AUTH_MODE=jwt",
		Example: `  BACHGEN_JWT_SECRET=s3cret bachgen token alice --email alice@example.com
  bachgen token ops --role admin --ttl 720h --jwt-secret s3cret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := v.GetString("jwt-secret")
			if secret == "" {
				return errors.New("a signing secret is required (--jwt-secret or BACHGEN_JWT_SECRET)")
			}
			role := v.GetString("role")
			if role != models.RoleUser && !models.IsAdmin(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := middleware.IssueToken(secret, args[0], v.GetString("email"), role, v.GetDuration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("jwt-secret", "", "HMAC secret shared with the server")
	f.String("email", "", "Email claim")
	f.String("role", models.RoleUser, "Role claim: user, admin")
	f.Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
