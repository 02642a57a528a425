package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/config"
	"printfleet-system/internal/database"
	"printfleet-system/internal/logging"
	"printfleet-system/internal/reports"
	client "printfleet-system/internal/services/client/handler"
	printer "printfleet-system/internal/services/printer/handler"
	rental "printfleet-system/internal/services/rental/handler"
	user "printfleet-system/internal/services/user/handler"
	sysutils "printfleet-system/internal/utils"
)

type dbOpener func(cfg config.Config, logger *zap.Logger) (*gorm.DB, error)

// cli carries what every subcommand needs once the root command has connected.
type cli struct {
	open    dbOpener
	cfg     config.Config
	logger  *zap.Logger
	db      *gorm.DB
	timeout time.Duration
	verbose bool
}

func (a *cli) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func newRootCmd(open dbOpener) *cobra.Command {
	app := &cli{open: open}

	rootCmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Administer the printer fleet database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.cfg = config.LoadConfig()

			level := app.cfg.Log.Level
			if app.verbose {
				level = "debug"
			}
			logger, err := logging.New(level, app.cfg.Log.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			app.logger = logger

			db, err := app.open(app.cfg, logger)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			app.db = db
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&app.timeout, "timeout", time.Minute, "Operation timeout")

	rootCmd.AddCommand(
		migrateCmd(app),
		seedRolesCmd(app),
		createUserCmd(app),
		exportFleetCmd(app),
		refreshRentalsCmd(app),
	)
	return rootCmd
}

func migrateCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(app.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func seedRolesCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-roles",
		Short: "Create the viewer, staff, technician and admin roles if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context()
			defer cancel()

			users := user.NewUserHandler(app.db, nil, nil, app.logger)
			created, err := users.SeedRoles(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d role(s)\n", created)
			return nil
		},
	}
}

func createUserCmd(app *cli) *cobra.Command {
	var (
		req      user.RegisterRequest
		roleName string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account with the given role",
		Long: `Create a user account directly in the database.

The password is read from --password or, when that is empty, from the
FLEETCTL_PASSWORD environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context()
			defer cancel()

			if req.Password == "" {
				req.Password = os.Getenv("FLEETCTL_PASSWORD")
			}

			users := user.NewUserHandler(app.db, nil, sysutils.NewTokenIssuer(app.cfg.Auth.JWTSecret, app.cfg.Auth.TokenTTL), app.logger)
			role, err := users.RoleByName(ctx, roleName)
			if err != nil {
				return fmt.Errorf("%w (run seed-roles first)", err)
			}
			req.RoleID = role.ID

			created, err := users.CreateUser(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, role %s)\n", created.Username, created.ID, role.RoleName)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (at least 8 characters)")
	cmd.Flags().StringVar(&req.Firstname, "firstname", "", "First name")
	cmd.Flags().StringVar(&req.Lastname, "lastname", "", "Last name")
	cmd.Flags().StringVar(&roleName, "role", "admin", "Role name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func exportFleetCmd(app *cli) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-fleet",
		Short: "Write the fleet to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context()
			defer cancel()

			printers, err := printer.NewPrinterHandler(app.db, nil, app.logger).ListAll(ctx)
			if err != nil {
				return err
			}
			names, err := client.NewClientHandler(app.db, nil, app.logger).ClientNames(ctx)
			if err != nil {
				return err
			}

			data, err := reports.BuildFleetXLSX(printers, names)
			if err != nil {
				return fmt.Errorf("build workbook: %w", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d printer(s) to %s\n", len(printers), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "fleet.xlsx", "Output file")
	return cmd
}

func refreshRentalsCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-rentals",
		Short: "Activate started rentals and complete ended ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context()
			defer cancel()

			result, err := rental.NewRentalHandler(app.db, nil, app.logger).RefreshStatuses(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated %d, completed %d rental(s)\n", result.Activated, result.Completed)
			return nil
		},
	}
}
