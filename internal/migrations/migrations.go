// Package migrations versions the one auxiliary table that isn't raw
// goleveldb KV: bookkeeping rows for CLI run metadata and a schema
// version marker for the cache table's derived-stats format. Grounded
// on kasparov/kasparovserver/main.go's and apiserver/main.go's
// database.Connect-then-migrate bootstrap shape; neither package's
// database.Connect implementation itself was retrieved into the
// reference pack, so the connection/run logic below is this package's
// own, built only from that import and call-order contract.
package migrations

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/kaspanet/ordindexer/internal/logs"
)

// Run opens dsn, applies every pending migration under dir, and closes
// the connection. A blank dsn is a deliberate no-op: the core indexer
// has no dependency on this table existing.
func Run(dsn, dir string, log *logs.Logger) error {
	if dsn == "" {
		if log != nil {
			log.Debugf("migrations: no --aux-dsn configured, skipping")
		}
		return nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return errors.Wrap(err, "opening auxiliary database")
	}
	defer db.Close()

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return errors.Wrap(err, "building migrate driver")
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "mysql", driver)
	if err != nil {
		return errors.Wrap(err, "constructing migrator")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "applying migrations")
	}

	if log != nil {
		log.Infof("migrations: auxiliary database up to date")
	}
	return nil
}
