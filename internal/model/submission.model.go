package model

import (
	"time"

	"github.com/google/uuid"
)

// Reason is the caller-declared purpose of an inquiry.
type Reason string

const (
	ReasonGeneralEnquiry Reason = "general_enquiry"
	ReasonBuyBike        Reason = "buy_bike"
	ReasonSellBike       Reason = "sell_bike"
	ReasonExchangeBike   Reason = "exchange_bike"
	ReasonRTOService     Reason = "rto_service"
	ReasonOthers         Reason = "others"
)

// Reasons lists every accepted reason in display order.
var Reasons = []Reason{
	ReasonGeneralEnquiry,
	ReasonBuyBike,
	ReasonSellBike,
	ReasonExchangeBike,
	ReasonRTOService,
	ReasonOthers,
}

var reasonLabels = map[Reason]string{
	ReasonGeneralEnquiry: "General Enquiry",
	ReasonBuyBike:        "Buy a Bike",
	ReasonSellBike:       "Sell Your Bike",
	ReasonExchangeBike:   "Exchange Bike",
	ReasonRTOService:     "RTO Service",
	ReasonOthers:         "Others",
}

func (r Reason) Valid() bool {
	_, ok := reasonLabels[r]
	return ok
}

func (r Reason) Label() string {
	if l, ok := reasonLabels[r]; ok {
		return l
	}
	return string(r)
}

// Source is the channel through which the submitter found the business.
type Source string

const (
	SourceGoogle        Source = "google"
	SourceSocial        Source = "social"
	SourceFriend        Source = "friend"
	SourceAdvertisement Source = "advertisement"
	SourceOther         Source = "other"
)

var Sources = []Source{
	SourceGoogle,
	SourceSocial,
	SourceFriend,
	SourceAdvertisement,
	SourceOther,
}

var sourceLabels = map[Source]string{
	SourceGoogle:        "Google Search",
	SourceSocial:        "Social Media",
	SourceFriend:        "Friend/Family Referral",
	SourceAdvertisement: "Advertisement",
	SourceOther:         "Other",
}

func (s Source) Valid() bool {
	_, ok := sourceLabels[s]
	return ok
}

func (s Source) Label() string {
	if s == "" {
		return "Not specified"
	}
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return string(s)
}

// Status is the triage state of a submission.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var Statuses = []Status{StatusNew, StatusInProgress, StatusResolved, StatusClosed}

var statusLabels = map[Status]string{
	StatusNew:        "New",
	StatusInProgress: "In Progress",
	StatusResolved:   "Resolved",
	StatusClosed:     "Closed",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ContactForm is a validated and normalized inquiry, ready to be stored.
type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Reason  Reason
	Source  Source
	Message string

	// NameInEmail flags submissions whose email contains the submitter's
	// name. It is informational only.
	NameInEmail bool
}

// ClientMeta is what the transport knows about the submitting client.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Submission is one stored contact inquiry.
type Submission struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Reason      Reason     `json:"reason"`
	Source      Source     `json:"source,omitempty"`
	Message     string     `json:"message"`
	IPAddress   string     `json:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	Status      Status     `json:"status"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	AdminNotes  string     `json:"admin_notes,omitempty"`
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsRecent reports whether the submission arrived within the last day.
func (s *Submission) IsRecent(now time.Time) bool {
	return now.Sub(s.CreatedAt) < 24*time.Hour
}

func (s *Submission) DaysOld(now time.Time) int {
	return int(now.Sub(s.CreatedAt).Hours() / 24)
}

// Assign hands the submission to a staff member; new submissions move to in progress.
func (s *Submission) Assign(staffID int64) {
	s.AssignedTo = &staffID
	if s.Status == StatusNew {
		s.Status = StatusInProgress
	}
}

func (s *Submission) MarkResolved(staffID int64) {
	s.Status = StatusResolved
	s.AssignedTo = &staffID
}

// SubmissionFilter selects submissions. Nil fields are unconstrained; From is
// inclusive and To exclusive. A zero Limit returns every matching row.
type SubmissionFilter struct {
	IDs       []uuid.UUID
	Statuses  []Status
	Reason    *Reason
	Source    *Source
	Email     *string
	EmailSent *bool
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}

// DateRange is an inclusive calendar-date range; either end may be omitted.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Bounds converts the range into half-open timestamps in loc.
func (r DateRange) Bounds(loc *time.Location) (from, to *time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	if r.Start != nil {
		y, m, d := r.Start.Date()
		t := time.Date(y, m, d, 0, 0, 0, 0, loc)
		from = &t
	}
	if r.End != nil {
		y, m, d := r.End.Date()
		t := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		to = &t
	}
	return from, to
}

type ReasonCount struct {
	Reason Reason `json:"reason"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

type SourceCount struct {
	Source Source `json:"source"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// DashboardStats is the triage overview for one date range.
type DashboardStats struct {
	Total       int64         `json:"total"`
	New         int64         `json:"new"`
	Resolved    int64         `json:"resolved"`
	ByReason    []ReasonCount `json:"by_reason"`
	BySource    []SourceCount `json:"by_source"`
	Recent      []*Submission `json:"recent"`
	Submissions []*Submission `json:"submissions"`
	StartDate   *time.Time    `json:"start_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
}

// BulkAction is a staff operation applied to many submissions at once.
type BulkAction string

const (
	BulkMarkResolved   BulkAction = "mark_resolved"
	BulkMarkInProgress BulkAction = "mark_in_progress"
	BulkDelete         BulkAction = "delete"
)

func (a BulkAction) Valid() bool {
	switch a {
	case BulkMarkResolved, BulkMarkInProgress, BulkDelete:
		return true
	}
	return false
}
