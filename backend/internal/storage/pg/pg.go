package pg

import (
	"context"
	"database/sql"

	"github.com/goteo-dev/goteo/shared/config"
	"github.com/goteo-dev/goteo/shared/logger"
	sharedpg "github.com/goteo-dev/goteo/shared/storage/pg"

	"github.com/lib/pq"
)

// Storage is the PostgreSQL implementation of every storage interface the
// services depend on.
type Storage struct {
	db  *sql.DB
	cfg *config.Config
}

func New(cfg *config.Config) (*Storage, error) {
	logger.Log.Info("connecting to db", "host", cfg.Private.Pg.Host, "dbname", cfg.Private.Pg.Dbname)
	db, err := sharedpg.Connect(cfg, sharedpg.DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	logger.Log.Info("successfully connected to db")
	return &Storage{db, cfg}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return sharedpg.WithTx(ctx, s.db, fn)
}

func (s *Storage) activeInvestStatuses() any {
	statuses := make([]int64, len(s.cfg.Public.ActiveInvestStatuses))
	for i, st := range s.cfg.Public.ActiveInvestStatuses {
		statuses[i] = int64(st)
	}
	return pq.Array(statuses)
}

func stringArray[T ~string](ids []T) any {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	return pq.Array(raw)
}
