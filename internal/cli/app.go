package cli

import (
	"context"
	"database/sql"
	"io"

	"github.com/chararch/bulkop"
	"github.com/chararch/bulkop/internal/config"
	"github.com/chararch/bulkop/internal/logs"
	"github.com/chararch/bulkop/manifest"
	"github.com/chararch/bulkop/store"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// app resources shared by the commands of one invocation
type app struct {
	cfg   *config.Config
	db    *sql.DB
	store *store.Store
}

func newApp(ctx context.Context, cfgPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log, logOut)

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v database", cfg.Database.Driver)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	st := store.New(db)
	if err = bulkop.CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err = st.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	bulkop.SetDB(db)
	bulkop.SetMaxRunningBatches(cfg.Pool.MaxRunningBatches)
	bulkop.SetMaxRunningAttempts(cfg.Pool.AttemptPoolSize)
	return &app{cfg: cfg, db: db, store: st}, nil
}

func (a *app) Close() {
	bulkop.SetRepository(nil)
	a.db.Close()
}

func setupLogging(cfg config.LogConfig, out io.Writer) {
	level := logs.ParseLevel(cfg.Level)
	if cfg.Format == "json" {
		bulkop.SetLogger(logs.NewJSONLogger(out, level))
		return
	}
	bulkop.SetLogger(logs.NewLogger(out, level))
}

// processor builder preset with the configured retry policy and pacing
func (a *app) processor(name string) *bulkop.ProcessorBuilder {
	b := a.cfg.Batch
	return bulkop.NewProcessor(name).
		MaxRetries(b.MaxRetries).
		AttemptTimeout(b.AttemptTimeout).
		Backoff(bulkop.LinearBackoff(b.RetryBackoff)).
		ItemDelay(b.ItemDelay).
		StartDelay(b.StartDelay).
		EstimatePerItem(b.EstimatePerItem)
}

func (a *app) fileSystem(useFTP bool) manifest.FileSystem {
	if !useFTP {
		return &manifest.LocalFileSystem{}
	}
	f := a.cfg.FTP
	return &manifest.FTPFileSystem{Host: f.Host, Port: f.Port, User: f.User, Password: f.Password, ConnTimeout: f.Timeout}
}

// lookupEntities load items by id, ids without an item become store.Ref so validation reports them
func (a *app) lookupEntities(ctx context.Context, ids []string) ([]bulkop.Entity, error) {
	items, _, err := a.store.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]*store.Item, len(items))
	for _, it := range items {
		found[it.ID] = it
	}
	entities := make([]bulkop.Entity, 0, len(ids))
	for _, id := range ids {
		if it, ok := found[id]; ok {
			entities = append(entities, it)
		} else {
			entities = append(entities, store.Ref(id))
		}
	}
	return entities, nil
}
