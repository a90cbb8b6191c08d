package catalog

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded schema for the repository's dialect.
func (r *Repository) RunMigrations() error {
	driver, err := migrationDriver(r.db, r.dialect)
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+r.dialect)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, r.dialect, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func migrationDriver(db *sqlx.DB, dialect string) (database.Driver, error) {
	switch dialect {
	case DialectSQLite:
		return sqlite.WithInstance(db.DB, &sqlite.Config{})
	case DialectPostgres:
		return postgres.WithInstance(db.DB, &postgres.Config{
			MigrationsTable: "catalog_schema_migrations",
		})
	case DialectMySQL:
		return mysql.WithInstance(db.DB, &mysql.Config{
			MigrationsTable: "catalog_schema_migrations",
		})
	default:
		return nil, fmt.Errorf("unknown catalog dialect %q", dialect)
	}
}
