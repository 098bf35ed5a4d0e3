package mailsink

import (
	"io"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/rs/zerolog/log"
)

const maxMessageBytes = 10 * 1024 * 1024

// Backend accepts every message and records it in a Store. It never relays.
type Backend struct {
	store *Store
}

func NewBackend(store *Store) *Backend {
	return &Backend{store: store}
}

func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b, remote: c.Conn().RemoteAddr().String()}, nil
}

// NewServer configures an SMTP server for b listening on addr.
func NewServer(b *Backend, addr, domain string) *gosmtp.Server {
	s := gosmtp.NewServer(b)
	s.Addr = addr
	s.Domain = domain
	s.AllowInsecureAuth = true
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.MaxMessageBytes = maxMessageBytes
	s.MaxRecipients = 50
	return s
}

type session struct {
	backend *Backend
	remote  string
	from    string
	to      []string
}

func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := readAll(r, maxMessageBytes)
	if err != nil {
		return err
	}
	m := s.backend.store.Add(s.from, s.to, raw)
	log.Info().
		Str("id", m.ID).
		Str("from", m.From).
		Strs("to", m.To).
		Str("subject", m.Subject).
		Str("remote", s.remote).
		Msg("Captured message")
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}
