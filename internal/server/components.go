package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/txrisk/internal/config"
	"github.com/mbd888/txrisk/internal/history"
	"github.com/mbd888/txrisk/internal/risk"
)

// components are the storage and history pieces shared by the HTTP server
// and the MCP binary.
type components struct {
	db        *sql.DB // nil if using in-memory
	resilient *history.ResilientProvider
	provider  risk.HistoryProvider // what the engine reads: resilient, possibly cached
	store     risk.Store
}

func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// buildComponents picks the audit store and history source from cfg. The
// history source is the mirror node when configured, else the
// ledger_transactions table when a database is configured, else memory.
func buildComponents(cfg *config.Config, logger *slog.Logger, override risk.HistoryProvider) (*components, error) {
	c := &components{}

	if cfg.DatabaseURL != "" {
		db, err := openDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.db = db
		c.store = risk.NewPostgresStore(db)
		logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		c.store = risk.NewMemoryStore()
		logger.Info("using in-memory storage (data will not persist)")
	}

	var (
		next   risk.HistoryProvider
		source string
	)
	switch {
	case override != nil:
		next, source = override, history.SourceMemory
	case cfg.MirrorNodeURL != "":
		mirror, err := history.NewMirrorProvider(cfg.MirrorNodeURL)
		if err != nil {
			c.close(logger)
			return nil, err
		}
		next, source = mirror, history.SourceMirror
		logger.Info("reading histories from mirror node", "url", cfg.MirrorNodeURL)
	case c.db != nil:
		pg := history.NewPostgresProvider(c.db)
		if cfg.DemoSeed {
			seedPostgres(pg, logger)
		}
		next, source = pg, history.SourcePostgres
		logger.Info("reading histories from ledger_transactions")
	default:
		mem := history.NewMemoryProvider()
		if cfg.DemoSeed {
			history.SeedMemory(mem, time.Now())
			logger.Info("demo histories loaded", "accounts", history.DemoAccounts())
		}
		next, source = mem, history.SourceMemory
	}

	c.resilient = history.NewResilientProvider(next, source, history.WithLogger(logger))
	c.provider = c.resilient
	if cfg.HistoryCacheTTL > 0 {
		c.provider = history.NewCachingProvider(c.resilient, cfg.HistoryCacheTTL)
	}
	return c, nil
}

func seedPostgres(pg *history.PostgresProvider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for account, recs := range history.DemoHistories(time.Now()) {
		if err := pg.Record(ctx, account, recs...); err != nil {
			logger.Warn("failed to seed demo history", "account_id", account, "error", err)
			return
		}
	}
	logger.Info("demo histories loaded", "accounts", history.DemoAccounts())
}

func (c *components) engine(cfg *config.Config, logger *slog.Logger, opts ...risk.Option) *risk.Engine {
	base := []risk.Option{
		risk.WithConfig(cfg.RiskConfig()),
		risk.WithStore(c.store),
		risk.WithLogger(logger),
	}
	return risk.NewEngine(c.provider, append(base, opts...)...)
}

func (c *components) close(logger *slog.Logger) {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	} else {
		logger.Info("database connection closed")
	}
}

// NewEngine builds a standalone engine from cfg without the HTTP surface.
// The returned cleanup closes any database connection.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*risk.Engine, func(), error) {
	c, err := buildComponents(cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	engine := c.engine(cfg, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := engine.Flush(ctx); err != nil {
			logger.Warn("audit flush incomplete", "error", err)
		}
		c.close(logger)
	}
	return engine, cleanup, nil
}
