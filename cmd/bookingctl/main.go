package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/hospital-booking/backend/internal/adapters/database"
	"github.com/zatekoja/hospital-booking/backend/internal/app"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hospital-booking/backend/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bookingctl",
		Short: "Maintenance commands for the hospital booking backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			driver, _ := cmd.Flags().GetString("storage")
			if driver != "" {
				return os.Setenv("STORAGE_DRIVER", driver)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("storage", "", "Storage driver (memory, redis, postgres); defaults to STORAGE_DRIVER")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(backfillCodesCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reindexCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp loads configuration, opens the backends and runs fn
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger("bookingctl", cfg.Environment, cfg.LogLevel)
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn().Msg("Memory storage does not outlive this command; pass --storage redis or postgres")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing backends")
		}
	}()
	return fn(ctx, a)
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default specialties, accounts and sample appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.Seeder.Run(ctx)
				if err != nil {
					return fmt.Errorf("seed failed: %w", err)
				}
				fmt.Printf("Created %d specialties, %d accounts, %d appointments.\n", res.Specialties, res.Accounts, res.Appointments)
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Complete every appointment left open past its day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.Reconciler.SweepAll(ctx)
				if err != nil {
					return fmt.Errorf("sweep failed: %w", err)
				}
				fmt.Printf("Auto-completed %d appointment(s).\n", n)
				return nil
			})
		},
	}
}

func backfillCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-codes",
		Short: "Assign patient codes to patients that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.PatientCodes.BackfillCodes(ctx)
				if err != nil {
					return fmt.Errorf("backfill failed: %w", err)
				}
				fmt.Printf("Assigned %d patient code(s).\n", n)
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			printOnly, _ := cmd.Flags().GetBool("print")
			if printOnly {
				fmt.Print(database.Schema())
				return nil
			}
			if err := os.Setenv("STORAGE_DRIVER", config.StoragePostgres); err != nil {
				return err
			}
			// opening postgres storage applies the schema
			return withApp(func(ctx context.Context, a *app.App) error {
				fmt.Println("Schema is up to date.")
				return nil
			})
		},
	}
	cmd.Flags().Bool("print", false, "Print the schema instead of applying it")
	return cmd
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the Typesense doctor index from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.Setenv("TYPESENSE_ENABLED", "true"); err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if !a.Directory.Indexed() {
					return fmt.Errorf("typesense is unavailable")
				}
				if err := a.Directory.Reindex(ctx); err != nil {
					return fmt.Errorf("reindex failed: %w", err)
				}
				fmt.Println("Doctor index rebuilt.")
				return nil
			})
		},
	}
}
