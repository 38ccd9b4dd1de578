package cli

import (
	"fmt"

	"quizrevenue/internal/app"
	"quizrevenue/internal/domain"
	"quizrevenue/internal/infra/memory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd creates a pre-verified administrative account.
func NewSeedCmd(configPath *string) *cobra.Command {
	acc := app.SeedAccount{
		Email:     "superadmin@quizads.com",
		FirstName: "Super",
		LastName:  "Admin",
		Role:      domain.RoleSuperadmin,
	}
	var role string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an administrative account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			store, _, cleanup, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			acc.Role = domain.Role(role)
			auth := app.NewAuthService(store, nil, nil, nil, logger)
			user, created, err := auth.EnsureAccount(cmd.Context(), acc)
			if err != nil {
				return err
			}
			if !created {
				logger.Info("account already exists", zap.String("email", user.Email))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s\n", user.Role, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&acc.Email, "email", acc.Email, "account email")
	cmd.Flags().StringVar(&acc.Password, "password", "", "account password (min 8 characters)")
	cmd.Flags().StringVar(&acc.FirstName, "first-name", acc.FirstName, "first name")
	cmd.Flags().StringVar(&acc.LastName, "last-name", acc.LastName, "last name")
	cmd.Flags().StringVar(&acc.Country, "country", "", "country used for country leaderboards")
	cmd.Flags().StringVar(&acc.State, "state", "", "state used for state leaderboards")
	cmd.Flags().StringVar(&role, "role", string(acc.Role), "role: superadmin, country_admin, state_admin or content_creator")
	cmd.Flags().StringVar(&acc.Region, "region", "", "region for state_admin and country_admin")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLeaderboardCmd groups leaderboard maintenance commands.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Leaderboard maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Recompute global, country and state rankings from user totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			store, _, cleanup, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := app.NewLeaderboardService(memory.NewBoardStore(), store, logger).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ranked %d leaderboard rows\n", rows)
			return nil
		},
	})
	return cmd
}
