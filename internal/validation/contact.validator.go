package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/nimasrn/inquiry-desk/internal/model"
)

const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldReason  = "reason"
	FieldSource  = "source"
	FieldMessage = "message"
)

const (
	nameMinLen     = 2
	nameMaxLen     = 100
	phoneMinDigits = 10
	phoneMaxDigits = 15
	messageMinLen  = 10
	messageMaxLen  = 1000
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nameRe       = regexp.MustCompile(`^[A-Za-z ]+$`)
	phoneStripRe = regexp.MustCompile(`[^\d+]`)

	spamTokens = []string{"viagra", "casino", "lottery", "winner", "click here"}
)

// Payload is an untrusted key/value inquiry as received from a form or JSON body.
type Payload map[string]string

// FieldErrors maps a field name to its first error message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// FieldResult is the outcome of validating a single field.
type FieldResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type ContactValidator struct {
	v *validator.Validate
}

func NewContactValidator() *ContactValidator {
	return &ContactValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate normalizes p into a ContactForm. Exactly one of the return values is non-nil.
func (cv *ContactValidator) Validate(p Payload) (*model.ContactForm, FieldErrors) {
	errs := FieldErrors{}
	form := &model.ContactForm{}

	var msg string
	if form.Name, msg = cleanName(p[FieldName]); msg != "" {
		errs[FieldName] = msg
	}
	if form.Email, msg = cv.cleanEmail(p[FieldEmail]); msg != "" {
		errs[FieldEmail] = msg
	}
	if form.Phone, msg = cleanPhone(p[FieldPhone]); msg != "" {
		errs[FieldPhone] = msg
	}
	if form.Reason, msg = cleanReason(p[FieldReason]); msg != "" {
		errs[FieldReason] = msg
	}
	if form.Source, msg = cleanSource(p[FieldSource]); msg != "" {
		errs[FieldSource] = msg
	}
	if form.Message, msg = cleanMessage(p[FieldMessage]); msg != "" {
		errs[FieldMessage] = msg
	}

	if len(errs) > 0 {
		return nil, errs
	}
	form.NameInEmail = nameInEmail(form.Name, form.Email)
	return form, nil
}

// ValidateField checks one field in isolation. Unknown fields are reported invalid.
func (cv *ContactValidator) ValidateField(name, value string) FieldResult {
	var msg string
	switch name {
	case FieldName:
		_, msg = cleanName(value)
	case FieldEmail:
		_, msg = cv.cleanEmail(value)
	case FieldPhone:
		_, msg = cleanPhone(value)
	case FieldReason:
		_, msg = cleanReason(value)
	case FieldSource:
		_, msg = cleanSource(value)
	case FieldMessage:
		_, msg = cleanMessage(value)
	default:
		return FieldResult{Valid: false, Error: "Invalid field"}
	}
	if msg != "" {
		return FieldResult{Valid: false, Error: msg}
	}
	return FieldResult{Valid: true}
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func cleanName(raw string) (string, string) {
	name := collapse(raw)
	switch {
	case name == "":
		return "", "Name is required."
	case utf8.RuneCountInString(name) > nameMaxLen:
		return "", "Name cannot exceed 100 characters."
	case !nameRe.MatchString(name):
		return "", "Name should only contain letters and spaces."
	case utf8.RuneCountInString(name) < nameMinLen:
		return "", "Name must be at least 2 characters long."
	}
	return name, ""
}

func (cv *ContactValidator) cleanEmail(raw string) (string, string) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", "Email address is required."
	}
	if err := cv.v.Var(email, "email,max=254"); err != nil {
		return "", "Please enter a valid email address."
	}
	return email, ""
}

func cleanPhone(raw string) (string, string) {
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}
	stripped := phoneStripRe.ReplaceAllString(raw, "")
	lead := strings.HasPrefix(stripped, "+")
	digits := strings.ReplaceAll(stripped, "+", "")
	switch n := len(digits); {
	case n < phoneMinDigits:
		return "", "Phone number must be at least 10 digits long."
	case n > phoneMaxDigits:
		return "", "Phone number cannot exceed 15 digits."
	}
	if lead {
		return "+" + digits, ""
	}
	return digits, ""
}

func cleanReason(raw string) (model.Reason, string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", "Please select a reason for contact."
	}
	r := model.Reason(v)
	if !r.Valid() {
		return "", "Please select a valid reason."
	}
	return r, ""
}

func cleanSource(raw string) (model.Source, string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", ""
	}
	s := model.Source(v)
	if !s.Valid() {
		return "", "Please select a valid option."
	}
	return s, ""
}

func cleanMessage(raw string) (string, string) {
	message := collapse(raw)
	if message == "" {
		return "", "Message is required."
	}
	lower := strings.ToLower(message)
	for _, token := range spamTokens {
		if strings.Contains(lower, token) {
			return "", "Message contains inappropriate content."
		}
	}
	switch n := utf8.RuneCountInString(message); {
	case n < messageMinLen:
		return "", "Message must be at least 10 characters long."
	case n > messageMaxLen:
		return "", "Message cannot exceed 1000 characters."
	}
	return message, ""
}

func nameInEmail(name, email string) bool {
	compact := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	return compact != "" && strings.Contains(strings.ToLower(email), compact)
}
