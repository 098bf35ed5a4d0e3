package pg

import (
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

// Migrate runs a goose command ("up", "down", "status", "version", "redo",
// "reset") against the postgres database using the migrations in fsys.
func Migrate(cfg Config, fsys fs.FS, dir, command string) error {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set goose dialect")
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return errors.Wrap(err, "open migration connection")
	}
	defer db.Close() //nolint

	logger.Info("running migrations", "command", command, "dir", dir, "database", cfg.Database)
	if err := goose.Run(command, db, dir); err != nil {
		return errors.Wrapf(err, "goose %s", command)
	}
	return nil
}
