package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"fitchallenge/internal/gateway"
	"fitchallenge/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the PostgreSQL gateway.
type DB struct {
	conn     *sql.DB
	listener *Listener
	log      *logrus.Entry
}

var _ gateway.Gateway = (*DB)(nil)

func Connect(ctx context.Context, dsn string, log logrus.FieldLogger) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	entry := logging.For(log, "DB")
	entry.Info("connected to PostgreSQL")
	return &DB{
		conn:     conn,
		listener: newListener(dsn, entry),
		log:      entry,
	}, nil
}

func (d *DB) Close() error {
	d.listener.Close()
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Migrate applies every embedded migration in name order. Migrations are
// idempotent so this runs on every start.
func (d *DB) Migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := d.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", entry.Name(), err)
		}
		d.log.WithField("migration", entry.Name()).Info("applied migration")
	}
	return nil
}

// notFound maps an empty result to gateway.ErrNotFound.
func notFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return gateway.ErrNotFound
	}
	return nil
}
