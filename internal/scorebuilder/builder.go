package scorebuilder

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/cuescore/internal/config"
	"github.com/park285/cuescore/internal/gateway"
	"github.com/park285/cuescore/internal/msgcat"
	"github.com/park285/cuescore/internal/scoring"
	"github.com/park285/cuescore/internal/store"
	"github.com/park285/cuescore/internal/store/remote"
)

type Deps struct {
	Service *scoring.Service
	Gateway *gateway.Gateway
	Local   store.Store
	// nil when REMOTE_BACKEND=none
	Remote  store.Store
	Tokens  *store.TokenHolder
	Catalog *msgcat.Catalog

	closers []io.Closer
}

// Close stops the service and releases backend connections.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Service != nil {
		d.Service.Close()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i].Close()
	}
	d.closers = nil
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{Tokens: store.NewTokenHolder(cfg.AuthToken)}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = catalog

	kv, err := d.openLocal(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Local = store.NewLocalStore(kv, cfg.LocalNamespace, logger.Named("local"))

	if err := d.openRemote(ctx, cfg, logger); err != nil {
		d.Close()
		return nil, err
	}

	_, signedIn := d.Tokens.Token()
	d.Gateway = gateway.New(d.Local, d.Remote, signedIn && d.Remote != nil, logger.Named("gateway"))

	svc, err := scoring.NewService(d.Gateway, scoring.Config{AutosaveTimeout: cfg.AutosaveTimeout}, logger.Named("scoring"))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Service = svc

	logger.Info("builder_ready",
		zap.String("local", cfg.LocalBackend),
		zap.String("remote", cfg.RemoteBackend),
		zap.String("route", d.Gateway.Route().String()),
	)
	return d, nil
}

func (d *Deps) openLocal(ctx context.Context, cfg *config.AppConfig) (store.KV, error) {
	switch cfg.LocalBackend {
	case config.LocalRedis:
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		kv, err := store.OpenRedisKV(pctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init local redis: %w", err)
		}
		d.closers = append(d.closers, kv)
		return kv, nil
	case config.LocalSQLite:
		kv, err := store.OpenSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init local sqlite: %w", err)
		}
		d.closers = append(d.closers, kv)
		return kv, nil
	default:
		return store.NewMemoryKV(), nil
	}
}

func (d *Deps) openRemote(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	switch cfg.RemoteBackend {
	case config.RemoteHTTP:
		d.Remote = remote.NewHTTPStore(cfg.RemoteAPIURL, d.Tokens,
			remote.WithAPIKey(cfg.RemoteAPIKey),
			remote.WithTimeout(cfg.RemoteTimeout),
			remote.WithRetry(cfg.RemoteRetryMax),
			remote.WithLogger(logger.Named("remote")),
		)
	case config.RemotePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
		d.closers = append(d.closers, db)

		pctx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		pg := remote.NewPGStore(db, cfg.AuthJWTSecret, d.Tokens, logger.Named("remote"))
		if err := pg.EnsureSchema(pctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		d.Remote = pg
	}
	return nil
}
