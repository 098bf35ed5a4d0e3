package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is one rendered email.
type Envelope struct {
	From    mail.Address
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Recipients returns the bare addresses used for RCPT TO.
func (e *Envelope) Recipients() []string {
	out := make([]string, 0, len(e.To))
	for _, to := range e.To {
		if a, err := mail.ParseAddress(to); err == nil {
			out = append(out, a.Address)
			continue
		}
		out = append(out, to)
	}
	return out
}

// Bytes renders e as a multipart/alternative RFC 5322 message.
func (e *Envelope) Bytes(now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	type header struct{ k, v string }
	headers := []header{
		{"From", e.From.String()},
		{"To", strings.Join(e.To, ", ")},
	}
	if e.ReplyTo != "" {
		headers = append(headers, header{"Reply-To", e.ReplyTo})
	}
	headers = append(headers,
		header{"Subject", mime.QEncoding.Encode("utf-8", e.Subject)},
		header{"Date", now.Format(time.RFC1123Z)},
		header{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(e.From.Address))},
		header{"MIME-Version", "1.0"},
		header{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary())},
	)
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.k, h.v)
	}
	buf.WriteString("\r\n")

	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=utf-8", e.Text},
		{"text/html; charset=utf-8", e.HTML},
	} {
		if part.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
