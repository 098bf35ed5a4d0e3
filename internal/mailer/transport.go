package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
)

// Transport delivers one rendered envelope.
type Transport interface {
	Send(ctx context.Context, e *Envelope) error
}

// LogTransport pretends to send. It is used when outbound mail is disabled.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, e *Envelope) error {
	logger.Info("mail disabled, would send", "to", e.To, "subject", e.Subject, "reply_to", e.ReplyTo)
	return nil
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ImplicitTLS bool
	StartTLS    bool
	// TLS is cloned for both TLS modes; ServerName defaults to Host.
	TLS *tls.Config
	// Timeout bounds connect plus the whole SMTP conversation when the
	// context carries no deadline of its own.
	Timeout time.Duration
}

// SMTPTransport opens one connection per envelope.
type SMTPTransport struct {
	cfg SMTPConfig
	now func() time.Time
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg, now: time.Now}
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func (t *SMTPTransport) Send(ctx context.Context, e *Envelope) error {
	body, err := e.Bytes(t.now())
	if err != nil {
		return errors.Wrap(err, "render mime message")
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = t.now().Add(t.cfg.Timeout)
	}

	conn, err := t.dial(ctx, deadline)
	if err != nil {
		return errors.Wrapf(err, "dial smtp %s", t.addr())
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}

	var c *smtp.Client
	if t.cfg.StartTLS && !t.cfg.ImplicitTLS {
		if c, err = smtp.NewClientStartTLS(conn, t.tlsConfig()); err != nil {
			_ = conn.Close()
			return errors.Wrap(err, "starttls")
		}
	} else {
		c = smtp.NewClient(conn)
	}
	defer c.Close() //nolint

	if t.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			return errors.Wrap(err, "smtp auth")
		}
	}
	if err := c.SendMail(e.From.Address, e.Recipients(), bytes.NewReader(body)); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return c.Quit()
}

func (t *SMTPTransport) dial(ctx context.Context, deadline time.Time) (net.Conn, error) {
	d := &net.Dialer{Deadline: deadline}
	if t.cfg.ImplicitTLS {
		td := &tls.Dialer{NetDialer: d, Config: t.tlsConfig()}
		return td.DialContext(ctx, "tcp", t.addr())
	}
	return d.DialContext(ctx, "tcp", t.addr())
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	cfg := &tls.Config{}
	if t.cfg.TLS != nil {
		cfg = t.cfg.TLS.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = t.cfg.Host
	}
	return cfg
}

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// BreakerTransport stops calling a failing relay for OpenTimeout after
// FailureThreshold consecutive failures.
type BreakerTransport struct {
	next Transport
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerTransport(next Transport, cfg BreakerConfig) *BreakerTransport {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Name == "" {
		cfg.Name = "smtp"
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mail circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerTransport{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *BreakerTransport) Send(ctx context.Context, e *Envelope) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, e)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("mail relay unavailable: %w", err)
	}
	return err
}

func (b *BreakerTransport) State() gobreaker.State {
	return b.cb.State()
}
