package commands

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/common/config"
	"github.com/finbook/finbook/internal/domain/category"
	"github.com/finbook/finbook/internal/domain/transaction"
	"github.com/finbook/finbook/internal/platform/postgres/client"
	"github.com/finbook/finbook/internal/platform/postgres/repository"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finbook",
		Short: "Bank statement import and categorization",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newSetupCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newCategorizeCommand())

	return rootCmd
}

// app bundles the wired services a command needs
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	pool     *pgxpool.Pool
	importer *transaction.Service
	matcher  *category.Matcher
}

// newApp loads config, connects to Postgres and wires the services.
// Close must be called when the command is done.
func newApp(ctx context.Context) (*app, error) {
	// Optional .env for local runs; env vars win.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	var log *zap.Logger
	if cfg.Environment == "dev" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	pool, err := client.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	factory := repository.NewFactory(pool, log)
	matcher := category.NewMatcher(factory.CategoryRepository(), cfg.MatchBatchSize, log.Named("matcher"))
	importer := transaction.NewService(factory.TransactionRepository(), matcher, log.Named("import"))

	return &app{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		importer: importer,
		matcher:  matcher,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
	_ = a.log.Sync()
}
