package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nimasrn/inquiry-desk/internal/app"
	"github.com/nimasrn/inquiry-desk/internal/config"
	"github.com/nimasrn/inquiry-desk/internal/repository"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/migrations"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/pg"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var envPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Inquiry desk maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(envPath); err != nil {
				return err
			}
			return logger.Setup(config.Get().LoggerConfig())
		},
	}
	root.PersistentFlags().StringVar(&envPath, "env", "", "path to a dotenv file")
	root.AddCommand(newMigrateCmd(), newCreateStaffCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|redo|reset]",
		Short:     "Run postgres schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if cfg.DBDriver != "postgres" {
				return errors.Errorf("migrations target postgres, DB_DRIVER is %q", cfg.DBDriver)
			}
			return pg.Migrate(cfg.PostgresWrite(), migrations.FS, migrations.Dir, args[0])
		},
	}
}

func newCreateStaffCmd() *cobra.Command {
	var req services.CreateStaffRequest
	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create an active staff account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := app.OpenDB(config.Get())
			if err != nil {
				return err
			}
			defer db.Close() //nolint

			svc := services.NewAuthService(repository.NewStaffRepository(db), nil)
			st, err := svc.CreateStaff(context.Background(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created staff %q (id %d, admin %t)\n", st.Username, st.ID, st.IsAdmin)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password (at least 8 characters)")
	cmd.Flags().BoolVar(&req.IsAdmin, "admin", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
