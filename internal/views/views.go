package views

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageContact   = "contact.html"
	PageDashboard = "dashboard.html"
	PageLogin     = "login.html"
)

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
	"isoDate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	},
}

// Renderer executes one of the embedded pages. Every page shares layout.html.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, page := range []string{PageContact, PageDashboard, PageLogin} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", page)
		}
		r.pages[page] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return errors.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

type Option struct {
	Value string
	Label string
}

func ReasonOptions() []Option {
	out := make([]Option, len(model.Reasons))
	for i, r := range model.Reasons {
		out[i] = Option{Value: string(r), Label: r.Label()}
	}
	return out
}

func SourceOptions() []Option {
	out := make([]Option, len(model.Sources))
	for i, s := range model.Sources {
		out[i] = Option{Value: string(s), Label: s.Label()}
	}
	return out
}

type ContactPage struct {
	Site           model.SiteInfo
	Reasons        []Option
	Sources        []Option
	Values         map[string]string
	Errors         map[string]string
	Success        bool
	SuccessMessage string
	ErrorMessage   string
}

type DashboardPage struct {
	Site      model.SiteInfo
	Staff     *model.Staff
	Stats     *model.DashboardStats
	StartDate string
	EndDate   string
	Notice    string
	Error     string
	Now       time.Time
}

type LoginPage struct {
	Site     model.SiteInfo
	Username string
	Next     string
	Error    string
}
