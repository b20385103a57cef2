package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/njprem/tours-auth-api/internal/logging"
	"github.com/njprem/tours-auth-api/internal/repository/ports"
	"github.com/njprem/tours-auth-api/internal/repository/postgres"
	"github.com/njprem/tours-auth-api/internal/service"
	"github.com/njprem/tours-auth-api/internal/util"
)

const defaultSeedTimeout = 30 * time.Second

type seedConfig struct {
	importFile string
	deleteAll  bool
	timeout    time.Duration
}

func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load or wipe development users",
		Long: `Imports users from a YAML or JSON file, or deletes every user.
Plaintext passwords are hashed before storage; bcrypt and argon2id digests
are stored as given. Existing emails are skipped, so imports can be re-run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			databaseURL := os.Getenv("DATABASE_URL")
			if databaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
			defer cancel()

			db, err := postgres.New(databaseURL)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()
			if err := postgres.Migrate(ctx, db); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}
			return runSeed(ctx, cmd, cfg, postgres.NewCredentialStore(db))
		},
	}

	cmd.Flags().StringVar(&cfg.importFile, "import", "", "YAML or JSON file of users to import")
	cmd.Flags().BoolVar(&cfg.deleteAll, "delete", false, "delete every user")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations")
	cmd.MarkFlagsMutuallyExclusive("import", "delete")
	cmd.MarkFlagsOneRequired("import", "delete")

	return cmd
}

func (c *seedConfig) validate() error {
	if c.importFile == "" && !c.deleteAll {
		return oops.Code("CONFIG_INVALID").Errorf("one of --import or --delete is required")
	}
	if c.importFile != "" && c.deleteAll {
		return oops.Code("CONFIG_INVALID").Errorf("--import and --delete cannot be combined")
	}
	if c.timeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("timeout must be positive")
	}
	return nil
}

func runSeed(ctx context.Context, cmd *cobra.Command, cfg *seedConfig, users ports.CredentialStore) error {
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), "info")
	seeds := service.NewSeedService(users, util.NewArgon2Hasher(), logger)

	if cfg.deleteAll {
		deleted, err := seeds.DeleteAll(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("Deleted %d users\n", deleted)
		return nil
	}

	data, err := os.ReadFile(cfg.importFile)
	if err != nil {
		return oops.Code("SEED_READ_FAILED").With("file", cfg.importFile).Wrap(err)
	}
	entries, err := service.ParseSeedFile(data)
	if err != nil {
		return oops.Code("SEED_PARSE_FAILED").With("file", cfg.importFile).Wrap(err)
	}
	result, err := seeds.Import(ctx, entries)
	if err != nil {
		return err
	}
	cmd.Printf("Imported %d users (%d already present)\n", result.Created, result.Skipped)
	return nil
}
