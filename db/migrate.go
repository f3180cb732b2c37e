package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrationDB returns the handle migrations run on. Postgres gets a dedicated
// pool, since the pgx driver pins a connection until it is closed; owned
// reports whether the caller must close it. SQLite reuses the shared handle so
// :memory: databases are migrated in place.
func migrationDB(d *DB) (conn *sql.DB, owned bool, err error) {
	if d.Dialect != Postgres {
		return d.DB, false, nil
	}
	conn, err = sql.Open("pgx", d.dsn)
	if err != nil {
		return nil, false, fmt.Errorf("open migration connection: %w", err)
	}
	conn.SetMaxOpenConns(1)
	return conn, true, nil
}

// RunMigrations applies every pending migration for the database's dialect.
func RunMigrations(d *DB) error {
	conn, owned, err := migrationDB(d)
	if err != nil {
		return err
	}

	var driver database.Driver
	switch d.Dialect {
	case Postgres:
		driver, err = migratepgx.WithInstance(conn, &migratepgx.Config{})
	default:
		driver, err = sqlite3.WithInstance(conn, &sqlite3.Config{})
	}
	if err != nil {
		if owned {
			conn.Close()
		}
		return fmt.Errorf("create %s migration driver: %w", d.Dialect, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+d.Dialect.String())
	if err != nil {
		if owned {
			driver.Close()
		}
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.Dialect.String(), driver)
	if err != nil {
		src.Close()
		if owned {
			driver.Close()
		}
		return fmt.Errorf("create migrate instance: %w", err)
	}

	upErr := m.Up()
	var closeErr error
	if owned {
		// Closes the source, the pinned connection and the dedicated pool.
		srcErr, dbErr := m.Close()
		closeErr = errors.Join(srcErr, dbErr)
	} else {
		// The sqlite driver's Close would close the shared handle.
		src.Close()
	}
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", upErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close migrations: %w", closeErr)
	}
	return nil
}
