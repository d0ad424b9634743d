package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/practice2025/supportai/internal/auth"
)

var tokenExpiry time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		manager := auth.NewJWTManager(auth.DefaultJWTConfig(cfg.JWTSecret))
		expiry := tokenExpiry
		if expiry <= 0 {
			expiry = cfg.JWTExpiry
		}
		token, err := manager.GenerateTokenWithExpiry(args[0], expiry)
		if err != nil {
			return err
		}
		cmd.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "token lifetime (default JWT_EXPIRY)")
	rootCmd.AddCommand(tokenCmd)
}
