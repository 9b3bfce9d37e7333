package commands

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/daokit/internal/cli/config"
	"github.com/conduit-lang/daokit/internal/logging"
	"github.com/conduit-lang/daokit/internal/orm/cache"
	"github.com/conduit-lang/daokit/internal/orm/crud"
	"github.com/conduit-lang/daokit/internal/orm/datasource"
)

// session is an open database handle with the DAO built on it
type session struct {
	cfg    *config.Config
	ds     datasource.Config
	db     *sql.DB
	dao    *crud.DAO
	logger *zap.Logger

	notifier *cache.RedisNotifier
	listener *cache.Listener
}

func openSession(ctx context.Context, configPath string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	ds, err := cfg.Database.Datasource()
	if err != nil {
		return nil, err
	}
	db, err := datasource.Open(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", ds.Dialect, err)
	}

	s := &session{cfg: cfg, ds: ds, db: db, logger: logger}
	opts := []crud.Option{
		crud.WithLogger(logger),
		crud.WithAutoCreate(cfg.Database.AutoCreate),
	}
	if cfg.Cache.Enabled {
		objects := cache.NewObjectCache()
		if err := s.attachBus(ctx, objects); err != nil {
			_ = s.Close()
			return nil, err
		}
		opts = append(opts, crud.WithCache(objects))
	} else {
		opts = append(opts, crud.WithCache(nil))
	}
	s.dao = crud.New(db, ds.Dialect, opts...)
	return s, nil
}

// attachBus shares invalidations of objects with other processes over Redis
// when cache.redis.addr is set
func (s *session) attachBus(ctx context.Context, objects *cache.ObjectCache) error {
	redisCfg := s.cfg.Cache.Redis
	if redisCfg.Addr == "" {
		return nil
	}
	notifier, err := cache.NewRedisNotifier(cache.RedisConfig{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
		Channel:  redisCfg.Channel,
	}, s.logger)
	if err != nil {
		return err
	}
	s.notifier = notifier

	listener, err := notifier.Subscribe(ctx, objects)
	if err != nil {
		return err
	}
	s.listener = listener
	objects.SetNotifier(notifier)
	return nil
}

func (s *session) Close() error {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.notifier != nil {
		_ = s.notifier.Close()
	}
	_ = s.logger.Sync()
	return s.db.Close()
}
