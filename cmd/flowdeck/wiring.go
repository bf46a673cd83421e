package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitabwire/flowdeck/internal/catalog"
	"github.com/pitabwire/flowdeck/internal/config"
	"github.com/pitabwire/flowdeck/internal/license"
	"github.com/pitabwire/flowdeck/internal/nodetypes"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

// loadConfig reads the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// loadNodeTypes loads, validates and registers node types from dirs.
// metrics may be nil.
func loadNodeTypes(dirs []string, logger *zap.Logger, metrics *observability.Metrics) (*nodetypes.Registry, error) {
	record := func(status string, count int) {
		if metrics != nil {
			metrics.RecordNodeTypeLoad(status, count)
		}
	}

	files, err := nodetypes.NewLoader().LoadAll(dirs)
	if err != nil {
		record("error", 0)
		return nil, fmt.Errorf("node type loading failed: %w", err)
	}

	if verrs := nodetypes.NewValidator().Validate(files); len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("node type validation error",
				zap.String("path", ve.Path),
				zap.String("code", ve.Code),
				zap.String("error", ve.Message),
			)
		}
		record("invalid", 0)
		return nil, fmt.Errorf("node type validation failed with %d errors", len(verrs))
	}

	registry := nodetypes.NewRegistry(files)
	record("success", registry.Len())
	logger.Info("node types loaded",
		zap.Int("files", len(files)),
		zap.Int("node_types", registry.Len()),
		zap.String("checksum", registry.Checksum()),
	)
	return registry, nil
}

// catalogOptions applies the catalog config on top of the stock options.
func catalogOptions(cfg config.CatalogConfig) catalog.Options {
	opts := catalog.DefaultOptions()
	opts.CategoryExpanded = cfg.CategoryExpanded
	if cfg.UncategorizedSubcategory != "" {
		opts.UncategorizedSubcategory = cfg.UncategorizedSubcategory
	}
	if len(cfg.CredentialKeywords) > 0 {
		opts.CredentialKeywords = cfg.CredentialKeywords
	}
	if len(cfg.NodeKeywords) > 0 {
		opts.NodeKeywords = cfg.NodeKeywords
	}
	return opts
}

// buildLicenseProvider creates the license provider selected by config. The
// returned closer is nil when there is nothing to release.
func buildLicenseProvider(ctx context.Context, cfg config.LicenseConfig, logger *zap.Logger) (license.Provider, func(), error) {
	switch cfg.Provider {
	case config.LicenseProviderStatic, "":
		var plan *model.Plan
		if cfg.Static.PlanID != "" {
			plan = &model.Plan{ProductID: cfg.Static.PlanID}
		}
		logger.Info("using static license", zap.String("plan_id", cfg.Static.PlanID))
		return license.NewStaticProvider(plan, cfg.Static.Features), nil, nil

	case config.LicenseProviderRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		provider := license.NewRedisProvider(client, cfg.Redis.FeaturesKey, cfg.Redis.MainPlanKey)
		if err := provider.HealthCheck(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("license provider: %w", err)
		}
		logger.Info("using redis license", zap.String("addr", cfg.Redis.Address()))
		return provider, func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported license provider: %q", cfg.Provider)
	}
}

// buildTriggerCounter creates the active trigger counter selected by config.
func buildTriggerCounter(ctx context.Context, cfg config.TriggersConfig, logger *zap.Logger) (license.TriggerCounter, func(), error) {
	switch cfg.Store {
	case config.TriggerStoreMemory, "":
		counter := license.NewMemoryTriggerCounter()
		for id, wf := range cfg.Workflows {
			counter.Set(id, wf.Active, wf.TriggerCount)
		}
		logger.Info("using in-memory trigger counter", zap.Int("workflows", len(cfg.Workflows)))
		return counter, nil, nil

	case config.TriggerStorePostgres:
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("trigger store: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("trigger store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = cfg.MaxConns
		poolCfg.MinConns = cfg.MinConns
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("trigger store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("trigger store: ping: %w", err)
		}

		counter, err := license.NewPgTriggerCounter(pool, cfg.TablePrefix)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("trigger store: %w", err)
		}
		logger.Info("using postgres trigger counter", zap.String("table_prefix", cfg.TablePrefix))
		return counter, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported trigger store: %q", cfg.Store)
	}
}

// cliLogger returns a development logger on stderr when --verbose is set,
// so JSON written to stdout stays parseable.
func cliLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
