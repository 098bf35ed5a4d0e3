package config

import (
	"net"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/inquiry-desk/internal/mailer"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/pg"
	"github.com/pkg/errors"
)

var config *Config

const defaultSiteAddress = "51, Rajaji Street, GST Road, Chengalpattu-603104, Tamil Nadu, India"

// Config holds every setting the binaries read. Nothing else in the module
// reads the environment directly; packages receive the values they need
// through their own constructor options.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=inquiry_desk"`
	AppDebug            bool   `env:"APP_DEBUG,default=false"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	AppBaseUrl          string `env:"APP_BASE_URL,default=http://localhost:8080"`
	AppTimezone         string `env:"APP_TIMEZONE,default=UTC"`

	HttpListenAddr         string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpServerReadTimeout  time.Duration `env:"HTTP_SERVER_READ_TIMEOUT,default=5s"`
	HttpServerWriteTimeout time.Duration `env:"HTTP_SERVER_WRITE_TIMEOUT,default=30s"`
	HttpRequestTimeout     time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=30s"`
	HttpMaxBodyBytes       int           `env:"HTTP_MAX_BODY_BYTES,default=1048576"`
	// Comma separated IPs or CIDRs allowed to set X-Forwarded-For. Empty
	// trusts every peer.
	HttpTrustedProxies string `env:"HTTP_TRUSTED_PROXIES"`

	DBDriver     string `env:"DB_DRIVER,default=postgres"`
	DBSqlitePath string `env:"DB_SQLITE_PATH,default=inquiry_desk.db"`
	DBMaxOpen    int    `env:"DB_MAX_OPEN_CONNS,default=10"`
	DBMaxIdle    int    `env:"DB_MAX_IDLE_CONNS,default=5"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE,default=0"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=inquiry"`

	ThrottleEnabled bool          `env:"THROTTLE_ENABLED,default=false"`
	ThrottleLimit   int           `env:"THROTTLE_LIMIT,default=5"`
	ThrottleWindow  time.Duration `env:"THROTTLE_WINDOW,default=10m"`

	MailEnabled          bool          `env:"MAIL_ENABLED,default=false"`
	SMTPHost             string        `env:"SMTP_HOST,default=localhost"`
	SMTPPort             int           `env:"SMTP_PORT,default=587"`
	SMTPUsername         string        `env:"SMTP_USERNAME"`
	SMTPPassword         string        `env:"SMTP_PASSWORD"`
	SMTPImplicitTLS      bool          `env:"SMTP_IMPLICIT_TLS,default=false"`
	SMTPStartTLS         bool          `env:"SMTP_STARTTLS,default=true"`
	MailFrom             string        `env:"MAIL_FROM,default=noreply@driverp.in"`
	MailFromName         string        `env:"MAIL_FROM_NAME,default=Drive RP"`
	ContactEmail         string        `env:"CONTACT_EMAIL,default=admin@driverp.in"`
	MailDispatchTimeout  time.Duration `env:"MAIL_DISPATCH_TIMEOUT,default=20s"`
	MailBreakerFailures  uint32        `env:"MAIL_BREAKER_FAILURES,default=3"`
	MailBreakerOpenFor   time.Duration `env:"MAIL_BREAKER_OPEN_FOR,default=30s"`
	MailBreakerHalfOpenN uint32        `env:"MAIL_BREAKER_HALF_OPEN_REQUESTS,default=1"`

	AuthSecretKey    string        `env:"AUTH_SECRET_KEY"`
	AuthTokenTTL     time.Duration `env:"AUTH_TOKEN_TTL,default=12h"`
	AuthCookieName   string        `env:"AUTH_COOKIE_NAME,default=staff_session"`
	AuthCookieSecure bool          `env:"AUTH_COOKIE_SECURE,default=false"`

	SiteName          string `env:"SITE_NAME,default=Drive RP"`
	SiteAddress       string `env:"SITE_ADDRESS"`
	SitePhone         string `env:"SITE_PHONE,default=+91 987 952 1234"`
	SiteEmail         string `env:"SITE_EMAIL,default=info@driverp.in"`
	SiteWebsite       string `env:"SITE_WEBSITE,default=www.DriveRp.in"`
	SiteHoursWeekdays string `env:"SITE_HOURS_WEEKDAYS,default=9:00 AM - 7:00 PM"`
	SiteHoursSaturday string `env:"SITE_HOURS_SATURDAY,default=9:00 AM - 5:00 PM"`
	SiteHoursSunday   string `env:"SITE_HOURS_SUNDAY,default=10:00 AM - 4:00 PM"`

	ResendWindow  time.Duration `env:"RESEND_WINDOW,default=72h"`
	ResendWorkers int           `env:"RESEND_WORKERS,default=4"`

	PromNamespace string `env:"PROM_NAMESPACE,default=inquiry_desk"`

	LogLevel      string `env:"LOG_LEVEL,default=info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB,default=100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS,default=3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS,default=28"`
	LogCompress   bool   `env:"LOG_COMPRESS,default=true"`
}

func Load(path string) error {
	c, err := Parse(path)
	if err != nil {
		return err
	}
	config = c
	return nil
}

// Parse reads the optional dotenv file at path and maps the environment onto a
// fresh Config without touching the package-level instance.
func Parse(path string) (*Config, error) {
	logger.Info("loading configs..", "path", path)
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return nil, errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return nil, errors.Wrap(err, "failed to map env variables to Configuration object")
	}
	// go-env splits tags on commas, so defaults that contain one live here.
	if c.SiteAddress == "" {
		c.SiteAddress = defaultSiteAddress
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.MailEnabled && c.ContactEmail == "" {
		return errors.New("CONTACT_EMAIL is required when MAIL_ENABLED is set")
	}
	if c.ThrottleEnabled && (c.ThrottleLimit <= 0 || c.ThrottleWindow <= 0) {
		return errors.New("THROTTLE_LIMIT and THROTTLE_WINDOW must be positive")
	}
	if c.MailDispatchTimeout <= 0 {
		return errors.New("MAIL_DISPATCH_TIMEOUT must be positive")
	}
	// Both notifications have to finish before the request deadline answers 408.
	if c.HttpRequestTimeout > 0 && c.MailDispatchTimeout >= c.HttpRequestTimeout {
		return errors.Errorf("MAIL_DISPATCH_TIMEOUT (%s) must be shorter than HTTP_REQUEST_TIMEOUT (%s)",
			c.MailDispatchTimeout, c.HttpRequestTimeout)
	}
	if _, err := c.TrustedProxies(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return errors.Wrapf(err, "invalid APP_TIMEZONE %q", c.AppTimezone)
	}
	return nil
}

// Location is the zone dashboard dates are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TrustedProxies parses HTTP_TRUSTED_PROXIES. Bare addresses become single-host
// networks.
func (c *Config) TrustedProxies() ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, item := range strings.Split(c.HttpTrustedProxies, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, errors.Errorf("invalid HTTP_TRUSTED_PROXIES entry %q", item)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(item)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid HTTP_TRUSTED_PROXIES entry %q", item)
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

func (c *Config) Pool() pg.Pool {
	return pg.Pool{MaxOpen: c.DBMaxOpen, MaxIdle: c.DBMaxIdle}
}

func (c *Config) Site() model.SiteInfo {
	return model.SiteInfo{
		Name:     c.SiteName,
		Address:  c.SiteAddress,
		Phone:    c.SitePhone,
		Email:    c.SiteEmail,
		Website:  c.SiteWebsite,
		Weekdays: c.SiteHoursWeekdays,
		Saturday: c.SiteHoursSaturday,
		Sunday:   c.SiteHoursSunday,
	}
}

func (c *Config) Mailer() mailer.Config {
	return mailer.Config{
		From:            c.MailFrom,
		FromName:        c.MailFromName,
		OperatorAddress: c.ContactEmail,
		DashboardURL:    strings.TrimRight(c.AppBaseUrl, "/") + "/dashboard/",
		Site:            c.Site(),
	}
}

func (c *Config) SMTP() mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:        c.SMTPHost,
		Port:        c.SMTPPort,
		Username:    c.SMTPUsername,
		Password:    c.SMTPPassword,
		ImplicitTLS: c.SMTPImplicitTLS,
		StartTLS:    c.SMTPStartTLS,
		Timeout:     c.MailDispatchTimeout,
	}
}

func (c *Config) Breaker() mailer.BreakerConfig {
	return mailer.BreakerConfig{
		Name:             "smtp",
		FailureThreshold: c.MailBreakerFailures,
		OpenTimeout:      c.MailBreakerOpenFor,
		HalfOpenRequests: c.MailBreakerHalfOpenN,
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Env:        c.AppEnv,
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
