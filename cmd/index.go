package cmd

import (
	"context"
	"fmt"
	"io"

	"luascan/internal/adapter/outbound/messaging"
	"luascan/internal/adapter/outbound/repository"
	"luascan/internal/application/common/retry"
	"luascan/internal/application/common/slogger"
	"luascan/internal/application/service"
	"luascan/internal/config"
	"luascan/internal/port/outbound"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "index [FILE...]",
		Short: "Index the functions of Lua files into PostgreSQL",
		Long: `Scan Lua files and store every function of each file in PostgreSQL,
replacing what was stored for that path before. When NATS is enabled an event
is published on luascan.functions.indexed for every stored file; publishing
failures are logged and do not fail the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, &opts, args)
		},
	}

	opts.register(cmd)
	return cmd
}

func runIndex(cmd *cobra.Command, opts *outputOptions, args []string) error {
	paths, err := opts.paths(args)
	if err != nil {
		return err
	}

	appCfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, err := opts.resolveFormat(formatText)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := connectDatabase(ctx, appCfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewPostgreSQLFunctionRepository(pool)
	if err := repo.EnsureSchema(ctx, appCfg.Database.Schema); err != nil {
		return err
	}

	var publisher outbound.FunctionEventPublisher
	if appCfg.NATS.Enabled {
		natsPublisher, err := connectPublisher(appCfg.NATS)
		if err != nil {
			slogger.Warn(ctx, "NATS unavailable, indexing without events", slogger.Field("error", err.Error()))
		} else {
			defer func() {
				if err := natsPublisher.Disconnect(); err != nil {
					slogger.Warn(ctx, "Failed to disconnect from NATS", slogger.Field("error", err.Error()))
				}
			}()
			publisher = natsPublisher
		}
	}

	svc, finish, err := newAnalysisService(ctx, appCfg, cmd.InOrStdin(),
		service.WithFunctionIndex(repo, publisher),
		service.WithSaveRetry(retry.DefaultPolicy(), repository.RetryChecker{}),
	)
	if err != nil {
		return err
	}
	defer finish()

	docs, err := svc.IndexFiles(ctx, paths)
	if err != nil {
		return err
	}

	return opts.writeTo(cmd, func(w io.Writer) error {
		if format != formatText {
			return writeStructured(w, format, documentsGlobals(docs))
		}
		for _, doc := range docs {
			if _, err := fmt.Fprintf(w, "indexed %s: %d functions, %d global\n",
				doc.FilePath, doc.Stats.TotalFunctions, doc.Stats.GlobalFunctions); err != nil {
				return err
			}
		}
		return nil
	})
}

// databaseConfig maps the application settings onto the repository settings.
func databaseConfig(db config.DatabaseConfig) repository.DatabaseConfig {
	return repository.DatabaseConfig{
		Host:           db.Host,
		Port:           db.Port,
		Database:       db.Name,
		Username:       db.User,
		Password:       db.Password,
		Schema:         db.Schema,
		MaxConnections: db.MaxConnections,
		SSLMode:        db.SSLMode,
	}
}

func connectDatabase(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}
	pool, err := repository.NewDatabaseConnection(ctx, databaseConfig(db))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func connectPublisher(natsCfg config.NATSConfig) (*messaging.NATSFunctionPublisher, error) {
	publisher, err := messaging.NewNATSFunctionPublisher(natsCfg)
	if err != nil {
		return nil, err
	}
	if err := publisher.Connect(); err != nil {
		return nil, err
	}
	if err := publisher.EnsureStream(); err != nil {
		_ = publisher.Disconnect()
		return nil, err
	}
	return publisher, nil
}
