package mailer

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"net/mail"
	texttemplate "text/template"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/prom"
	"github.com/pkg/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrDispatch wraps any failure to deliver either notification.
var ErrDispatch = errors.New("notification dispatch failed")

// Config is everything the dispatcher needs to address and brand mail.
type Config struct {
	From            string
	FromName        string
	OperatorAddress string
	DashboardURL    string
	Site            model.SiteInfo
}

type Dispatcher struct {
	cfg       Config
	transport Transport
	html      *htmltemplate.Template
	text      *texttemplate.Template
	now       func() time.Time
}

func NewDispatcher(cfg Config, transport Transport) (*Dispatcher, error) {
	if cfg.OperatorAddress == "" {
		return nil, errors.New("mailer: operator address is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: from address is required")
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse html mail templates")
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse text mail templates")
	}
	return &Dispatcher{
		cfg:       cfg,
		transport: transport,
		html:      html,
		text:      text,
		now:       time.Now,
	}, nil
}

type mailData struct {
	Submission   *model.Submission
	Reason       string
	Source       string
	Submitted    string
	Headline     string
	NextSteps    []string
	Site         model.SiteInfo
	DashboardURL string
}

// Dispatch sends the operator notification and then the submitter
// confirmation. It returns nil only when both were handed to the transport;
// the first failure stops the sequence.
func (d *Dispatcher) Dispatch(ctx context.Context, s *model.Submission) error {
	start := d.now()
	operator, confirmation, err := d.Render(s)
	if err != nil {
		prom.IncDispatch(prom.ResultFailed)
		return errors.Wrap(ErrDispatch, err.Error())
	}

	for _, e := range []*Envelope{operator, confirmation} {
		if err := d.transport.Send(ctx, e); err != nil {
			prom.IncDispatch(prom.ResultFailed)
			logger.Error("failed to send notification", "submission_id", s.ID, "to", e.To, "error", err)
			return errors.Wrapf(ErrDispatch, "send %q: %v", e.Subject, err)
		}
	}
	prom.IncDispatch(prom.ResultSent)
	prom.ObserveDispatch(d.now().Sub(start).Seconds())
	return nil
}

// Render builds both envelopes without sending them.
func (d *Dispatcher) Render(s *model.Submission) (operator *Envelope, confirmation *Envelope, err error) {
	c, known := copyFor(s.Reason)
	if !known {
		logger.Warn("rendering notification for unknown reason", "submission_id", s.ID, "reason", s.Reason)
	}
	data := mailData{
		Submission:   s,
		Reason:       s.Reason.Label(),
		Source:       s.Source.Label(),
		Submitted:    s.CreatedAt.Format("02 Jan 2006 15:04 MST"),
		Headline:     c.headline,
		NextSteps:    c.nextSteps,
		Site:         d.cfg.Site,
		DashboardURL: d.cfg.DashboardURL,
	}
	from := mail.Address{Name: d.cfg.FromName, Address: d.cfg.From}

	operator = &Envelope{
		From:    from,
		To:      []string{d.cfg.OperatorAddress},
		ReplyTo: (&mail.Address{Name: s.Name, Address: s.Email}).String(),
		Subject: OperatorSubject(d.cfg.Site.Name, s.Reason),
	}
	if operator.Text, operator.HTML, err = d.renderPair("operator", data); err != nil {
		return nil, nil, err
	}

	confirmation = &Envelope{
		From:    from,
		To:      []string{s.Email},
		ReplyTo: d.cfg.OperatorAddress,
		Subject: UserSubject(d.cfg.Site.Name, s.Reason),
	}
	if confirmation.Text, confirmation.HTML, err = d.renderPair("confirmation", data); err != nil {
		return nil, nil, err
	}
	return operator, confirmation, nil
}

func (d *Dispatcher) renderPair(name string, data mailData) (string, string, error) {
	var text, html bytes.Buffer
	if err := d.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return "", "", errors.Wrapf(err, "render %s text", name)
	}
	if err := d.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return "", "", errors.Wrapf(err, "render %s html", name)
	}
	return text.String(), html.String(), nil
}
