package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	_ "modernc.org/sqlite"
)

type txContextKey string

const txKey txContextKey = "trx"

type DB struct {
	read  *gorm.DB
	write *gorm.DB
}

// New wraps already opened handles. Passing the same handle twice is how
// single-node deployments and tests use the package.
func New(read, write *gorm.DB) *DB {
	return &DB{read: read, write: write}
}

func gormConfig(withDebug bool) *gorm.Config {
	c := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if withDebug {
		c.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}
	return c
}

func Create(config Config, pool Pool, withDebug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.DSN()), gormConfig(withDebug))
	if err != nil {
		return nil, errors.Wrapf(err, "open postgres %s/%s", config.Host, config.Database)
	}
	if err := applyPool(db, pool); err != nil {
		return nil, err
	}
	return db, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config, pool Pool, withDebug bool) (*DB, error) {
	read, err := Create(readConfig, pool, withDebug)
	if err != nil {
		return nil, err
	}
	write, err := Create(writeConfig, pool, withDebug)
	if err != nil {
		return nil, err
	}
	return &DB{read, write}, nil
}

// OpenSQLite opens a single-file database through the pure Go driver. SQLite
// allows one writer, so reads and writes share one handle.
func OpenSQLite(path string, withDebug bool) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	sqlDB.SetMaxOpenConns(1)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: path, Conn: sqlDB}, gormConfig(withDebug))
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	return New(db, db), nil
}

func applyPool(db *gorm.DB, pool Pool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql handle")
	}
	if pool.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdle)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

func (r *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, txKey, tx)
		return fn(ctx)
	})
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	tx = r.write.WithContext(ctx)

	return tx
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey).(*gorm.DB)
	if ok {
		return tx
	}

	tx = r.read.WithContext(ctx)

	return tx
}

// AutoMigrate creates or alters tables for dst on the write handle. Postgres
// deployments use the goose migrations instead.
func (r *DB) AutoMigrate(dst ...any) error {
	return r.write.AutoMigrate(dst...)
}

// Ping checks both handles.
func (r *DB) Ping(ctx context.Context) error {
	for _, g := range []*gorm.DB{r.write, r.read} {
		sqlDB, err := g.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *DB) Close() error {
	var first error
	for _, g := range []*gorm.DB{r.write, r.read} {
		sqlDB, err := g.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
