// Package app wires configuration into the shared dependencies every binary
// needs: the database, redis, the throttle and the notification dispatcher.
package app

import (
	"os"
	"strings"

	"github.com/nimasrn/inquiry-desk/internal/config"
	"github.com/nimasrn/inquiry-desk/internal/mailer"
	"github.com/nimasrn/inquiry-desk/internal/repository"
	"github.com/nimasrn/inquiry-desk/internal/throttle"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/pg"
	"github.com/nimasrn/inquiry-desk/pkg/redis"
	"github.com/pkg/errors"
)

// EnvPath returns the value of a --env=<file> argument when the file exists.
func EnvPath(args []string) string {
	for _, v := range args {
		if path, ok := strings.CutPrefix(v, "--env="); ok {
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "path", path, "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}

// OpenDB connects to postgres (read and write pools) or opens the sqlite file.
// SQLite schemas are created with AutoMigrate since goose targets postgres.
func OpenDB(c *config.Config) (*pg.DB, error) {
	debug := c.AppDebug && !c.IsProduction()
	if c.DBDriver == "sqlite" {
		db, err := pg.OpenSQLite(c.DBSqlitePath, debug)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(repository.Entities()...); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrate sqlite schema")
		}
		return db, nil
	}
	return pg.CreateReadWrite(c.PostgresRead(), c.PostgresWrite(), c.Pool(), debug)
}

// OpenRedis returns nil without error when no address is configured.
func OpenRedis(c *config.Config) (redis.RedisAdapter, error) {
	if c.RedisAddr == "" {
		return nil, nil
	}
	return redis.NewRedisAdapter("default", c.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: c.AppName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	})
}

// NewLimiter prefers the shared redis window and falls back to an in-process
// limiter when redis is absent.
func NewLimiter(c *config.Config, rds redis.RedisAdapter) throttle.Limiter {
	switch {
	case !c.ThrottleEnabled:
		return throttle.Nop{}
	case rds != nil:
		return throttle.NewRedis(rds, c.ThrottleLimit, c.ThrottleWindow)
	default:
		logger.Warn("redis not configured, submission throttle is per process")
		return throttle.NewLocal(c.ThrottleLimit, c.ThrottleWindow)
	}
}

// NewTransport returns the breaker-wrapped SMTP relay, or the log-only
// transport when outbound mail is disabled.
func NewTransport(c *config.Config) mailer.Transport {
	if !c.MailEnabled {
		logger.Warn("outbound mail disabled, notifications are only logged")
		return mailer.LogTransport{}
	}
	return mailer.NewBreakerTransport(mailer.NewSMTPTransport(c.SMTP()), c.Breaker())
}

func NewDispatcher(c *config.Config) (*mailer.Dispatcher, error) {
	return mailer.NewDispatcher(c.Mailer(), NewTransport(c))
}
