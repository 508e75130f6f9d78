package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	gormlogger "gorm.io/gorm/logger"

	"todocat/internal/auth"
	"todocat/internal/client"
	"todocat/internal/localstore"
	"todocat/internal/repository"
	"todocat/internal/todo"
)

// session is an opened store plus what has to be released afterwards.
type session struct {
	store *todo.Store
	close func()
}

func (a *app) logger() *log.Logger {
	if a.verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func (a *app) dbPath() string {
	if path := a.v.GetString("db"); path != "" {
		return path
	}
	return filepath.Join(configDir(), repository.DefaultDSN)
}

// openStore loads the store for this invocation. Filters and categories are
// always kept in the local database; tasks live there too unless a server is
// configured.
func (a *app) openStore(ctx context.Context) (*session, error) {
	logger := a.logger()

	dbOpts := []repository.DBOption{repository.WithLogOutput(logger.Writer())}
	if a.verbose {
		dbOpts = append(dbOpts, repository.WithLogLevel(gormlogger.Info))
	}
	db, err := repository.NewDB(a.dbPath(), dbOpts...)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	adapter := localstore.NewAdapter(repository.NewKVRepository(db), 0, logger)
	opts := []todo.Option{
		todo.WithDefaultCategory(a.v.GetString("default_category")),
		todo.WithDefaultCategories(a.v.GetStringSlice("categories")...),
		todo.WithLogger(logger),
	}

	if server := a.v.GetString("server"); server != "" {
		mode, err := todo.ParseMode(a.v.GetString("mode"))
		if err != nil {
			closeDB()
			return nil, err
		}
		token := a.v.GetString("token")
		backend := client.New(server, token, a.v.GetDuration("timeout"))
		opts = append(opts, todo.WithBackend(backend, mode))
		adapter = adapter.Namespace(accountNamespace(server, token))
	}
	opts = append(opts, todo.WithAdapter(adapter))

	store := todo.NewStore(opts...)
	if err := store.Load(ctx); err != nil {
		closeDB()
		return nil, err
	}
	return &session{store: store, close: closeDB}, nil
}

// accountNamespace keys the local state of one account on one server, so
// filters and categories never leak between logins.
func accountNamespace(server, token string) string {
	user, err := auth.Subject(token)
	if err != nil {
		user = "anonymous"
	}
	sum := sha256.Sum256([]byte(strings.TrimRight(server, "/") + "\n" + user))
	return "remote:" + hex.EncodeToString(sum[:8])
}

func (a *app) withStore(ctx context.Context, fn func(*todo.Store) error) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s.store)
}
